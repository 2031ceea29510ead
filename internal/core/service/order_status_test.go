package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

func placeOrder(t *testing.T, svc *OrderService) *domain.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), customer, codRequest(OrderLine{ProductID: "P1", Quantity: 1}))
	require.NoError(t, err)
	return order
}

func forceStatus(t *testing.T, store *fakeStore, orderID string, status domain.OrderStatus) {
	t.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	o := store.orders[orderID]
	o.Status = status
	store.orders[orderID] = o
}

func statusPtr(s domain.OrderStatus) *domain.OrderStatus       { return &s }
func paymentPtr(s domain.PaymentStatus) *domain.PaymentStatus { return &s }
func strPtr(s string) *string                                 { return &s }

func TestCancelOrder_Pending(t *testing.T) {
	svc, store, pub := newTestService(t, 0)
	order := placeOrder(t, svc)

	cancelled, err := svc.CancelOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	stored, _ := store.GetOrder(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderCancelled, events[1].Type)

	// second attempt on the now-cancelled order
	_, err = svc.CancelOrder(context.Background(), customer, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, "Order cannot be cancelled", domain.Message(err))
}

func TestCancelOrder_Confirmed(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	order := placeOrder(t, svc)
	forceStatus(t, store, order.ID, domain.OrderStatusConfirmed)

	cancelled, err := svc.CancelOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
}

func TestCancelOrder_RejectedOnceInFulfilment(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		t.Run(string(status), func(t *testing.T) {
			svc, store, _ := newTestService(t, 0)
			order := placeOrder(t, svc)
			forceStatus(t, store, order.ID, status)

			_, err := svc.CancelOrder(context.Background(), admin, order.ID)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)

			stored, _ := store.GetOrder(context.Background(), order.ID)
			assert.Equal(t, status, stored.Status)
		})
	}
}

func TestCancelOrder_DoesNotRestoreCouponUsage(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	store.addCoupon(activeCoupon("SAVE10", domain.DiscountPercentage, "10"))

	req := codRequest(OrderLine{ProductID: "P1", Quantity: 1})
	req.CouponCode = "SAVE10"
	order, err := svc.CreateOrder(context.Background(), customer, req)
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.coupon("SAVE10").UsedCount)
}

func TestCancelOrder_Authorization(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	order := placeOrder(t, svc)

	_, err := svc.CancelOrder(context.Background(), stranger, order.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.CancelOrder(context.Background(), domain.Actor{}, order.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	cancelled, err := svc.CancelOrder(context.Background(), admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
}

func TestCancelOrder_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	_, err := svc.CancelOrder(context.Background(), customer, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	order := placeOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), customer, order.ID, domain.StatusUpdate{Status: statusPtr(domain.OrderStatusConfirmed)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateStatus_RejectsUnknownValues(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	order := placeOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.StatusUpdate{Status: statusPtr("teleported")})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, domain.StatusUpdate{PaymentStatus: paymentPtr("maybe")})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, domain.StatusUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	stored, _ := store.GetOrder(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
}

func TestUpdateStatus_FollowsStateMachine(t *testing.T) {
	svc, store, pub := newTestService(t, 0)
	order := placeOrder(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{Status: statusPtr(domain.OrderStatusShipped)})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{Status: statusPtr(next)})
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{Status: statusPtr(domain.OrderStatusCancelled)})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	stored, _ := store.GetOrder(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusDelivered, stored.Status)

	statusEvents := 0
	for _, e := range pub.Events() {
		if e.Type == domain.EventOrderStatusChanged {
			statusEvents++
		}
	}
	assert.Equal(t, 4, statusEvents)
}

func TestUpdateStatus_PaymentLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t, 0)
	order := placeOrder(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{PaymentStatus: paymentPtr(domain.PaymentStatusRefunded)})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	updated, err := svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{
		PaymentStatus:     paymentPtr(domain.PaymentStatusCompleted),
		RazorpayPaymentID: strPtr("pay_29QQoUBi66xm2f"),
		RazorpaySignature: strPtr("9ef4dffbfd84f1318f6739a3ce19f9d85851857ae648f114332d8401e0949a3d"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, updated.PaymentStatus)

	stored, _ := store.GetOrder(ctx, order.ID)
	require.NotNil(t, stored.RazorpayPaymentID)
	assert.Equal(t, "pay_29QQoUBi66xm2f", *stored.RazorpayPaymentID)

	updated, err = svc.UpdateStatus(ctx, admin, order.ID, domain.StatusUpdate{PaymentStatus: paymentPtr(domain.PaymentStatusRefunded)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, updated.PaymentStatus)
}

func TestUpdateStatus_SameValueIsNoop(t *testing.T) {
	svc, _, pub := newTestService(t, 0)
	order := placeOrder(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.StatusUpdate{Status: statusPtr(domain.OrderStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, updated.Status)
	assert.Len(t, pub.Events(), 1) // only order.placed
}

func TestGetOrder_Authorization(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	order := placeOrder(t, svc)

	got, err := svc.GetOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	_, err = svc.GetOrder(context.Background(), stranger, order.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetOrder(context.Background(), admin, order.ID)
	assert.NoError(t, err)
}

func TestListOrders_ScopedToCaller(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	placeOrder(t, svc)
	_, err := svc.CreateOrder(context.Background(), stranger, codRequest(OrderLine{ProductID: "P2", Quantity: 1}))
	require.NoError(t, err)

	mine, err := svc.ListOrders(context.Background(), customer)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.ListOrders(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

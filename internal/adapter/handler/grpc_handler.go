package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/core/service"
)

const (
	MetadataUserID   = "x-user-id"
	MetadataUserRole = "x-user-role"
)

type GRPCHandler struct {
	orderService *service.OrderService
	logger       zerolog.Logger
}

func NewGRPCHandler(orderService *service.OrderService, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		orderService: orderService,
		logger:       logger.With().Str("component", "grpc").Logger(),
	}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	order, err := h.orderService.CreateOrder(ctx, ActorFrom(ctx), req.toService())
	if err != nil {
		return nil, h.grpcError(ctx, err)
	}
	return &OrderReply{Order: toOrderDTO(order), Message: "Order created successfully"}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderReply, error) {
	order, err := h.orderService.GetOrder(ctx, ActorFrom(ctx), req.OrderID)
	if err != nil {
		return nil, h.grpcError(ctx, err)
	}
	return &OrderReply{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRPCRequest) (*OrderReply, error) {
	order, err := h.orderService.UpdateStatus(ctx, ActorFrom(ctx), req.OrderID, req.toDomain())
	if err != nil {
		return nil, h.grpcError(ctx, err)
	}
	return &OrderReply{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*OrderReply, error) {
	order, err := h.orderService.CancelOrder(ctx, ActorFrom(ctx), req.OrderID)
	if err != nil {
		return nil, h.grpcError(ctx, err)
	}
	return &OrderReply{Order: toOrderDTO(order), Message: "Order cancelled successfully"}, nil
}

func (h *GRPCHandler) grpcError(ctx context.Context, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, domain.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrConflict):
		code = codes.AlreadyExists
	default:
		h.logger.Error().Err(err).Str("user_id", ActorFrom(ctx).UserID).Msg("rpc failed")
	}
	return status.Error(code, domain.Message(err))
}

// IdentityInterceptor reads the caller identity from incoming metadata.
func IdentityInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(MetadataUserID); len(ids) > 0 && strings.TrimSpace(ids[0]) != "" {
			actor := domain.Actor{UserID: strings.TrimSpace(ids[0]), Role: domain.RoleCustomer}
			if roles := md.Get(MetadataUserRole); len(roles) > 0 {
				actor.Role = parseRole(roles[0])
			}
			ctx = withActor(ctx, actor)
		}
	}
	return handler(ctx, req)
}

// LoggingInterceptor logs each call and recovers from panics.
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Str("method", info.FullMethod).Interface("panic", rec).Msg("panic recovered")
				err = status.Error(codes.Internal, "internal server error")
			}

			code := status.Code(err)
			ev := logger.Info()
			if code == codes.Internal || code == codes.Unknown {
				ev = logger.Error().Err(err)
			}
			ev.Str("method", info.FullMethod).
				Str("user_id", ActorFrom(ctx).UserID).
				Str("code", code.String()).
				Dur("duration", time.Since(start)).
				Msg("rpc completed")
		}()

		return handler(ctx, req)
	}
}

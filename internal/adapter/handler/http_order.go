package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if key := r.Header.Get(HeaderIdempotencyKey); key != "" {
		req.IdempotencyKey = key
	}

	order, err := h.orderService.CreateOrder(r.Context(), ActorFrom(r.Context()), req.toService())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, OrderReply{
		Order:   toOrderDTO(order),
		Message: "Order created successfully",
	})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListOrders(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderDTO(&orders[i]))
	}
	writeData(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, OrderReply{Order: toOrderDTO(order)})
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, OrderReply{Order: toOrderDTO(order)})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.CancelOrder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, OrderReply{
		Order:   toOrderDTO(order),
		Message: "Order cancelled successfully",
	})
}

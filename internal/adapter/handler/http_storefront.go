package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	writeData(w, http.StatusOK, map[string]any{"products": out})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalogService.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"product": toProductDTO(*p)})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartService.GetCart(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"cart": toCartDTO(view)})
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.cartService.AddItem(r.Context(), ActorFrom(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"cart": toCartDTO(view)})
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.cartService.UpdateItem(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"cart": toCartDTO(view)})
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartService.RemoveItem(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"cart": toCartDTO(view)})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartService.Clear(r.Context(), ActorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, messageReply{Message: "Cart cleared"})
}

func (h *HTTPHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponDTO
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.couponService.CreateCoupon(r.Context(), ActorFrom(r.Context()), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"coupon": toCouponDTO(*c)})
}

func (h *HTTPHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponService.ListCoupons(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]CouponDTO, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toCouponDTO(c))
	}
	writeData(w, http.StatusOK, map[string]any{"coupons": out})
}

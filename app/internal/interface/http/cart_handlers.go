package http

import (
	"net/http"

	"github.com/sirupsen/logrus"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
)

// Item content rules (title, thumbnail, ranges) belong to the store's
// validation policy; request validation only covers shape.
type lineItemRequest struct {
	Title           string  `json:"title"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
	Quantity        int64   `json:"quantity" validate:"gt=0"`
}

func (req lineItemRequest) toLineItem(productID int64) domcart.LineItem {
	return domcart.LineItem{
		ProductID:       productID,
		Title:           req.Title,
		ThumbnailURL:    req.ThumbnailURL,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		Quantity:        req.Quantity,
	}
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	lineItemRequest
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

func (a *API) handleListCartItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.cartSvc.ListAll(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapLineItems(items))
}

func (a *API) handleGetCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.cartSvc.FindByProductID(r.Context(), productID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapLineItem(*item))
}

func (a *API) handleUpsertCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req lineItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}

	item := req.toLineItem(productID)
	if err := a.cartSvc.Upsert(r.Context(), item); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapLineItem(item))
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}

	if err := a.cartSvc.AddToCart(r.Context(), req.toLineItem(req.ProductID)); err != nil {
		handleDomainError(w, err)
		return
	}

	a.log.WithFields(logrus.Fields{"device_id": deviceID(r.Context()), "product_id": req.ProductID}).Info("item added to cart")
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (a *API) handleUpdateCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req updateQuantityRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}

	if err := a.cartSvc.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.cartSvc.DeleteByProductID(r.Context(), productID); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := a.cartSvc.ClearAll(r.Context()); err != nil {
		handleDomainError(w, err)
		return
	}

	a.log.WithField("device_id", deviceID(r.Context())).Info("cart cleared")
	w.WriteHeader(http.StatusNoContent)
}

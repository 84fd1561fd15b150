package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/security"
	cartuc "example.com/commercex-cart/app/internal/usecase/cart"
)

type TokenService interface {
	ParseToken(token string) (*security.Claims, error)
}

type API struct {
	cartSvc   *cartuc.Service
	validator *validator.Validate
	tokenSvc  TokenService
	log       logrus.FieldLogger
}

type Dependencies struct {
	CartService *cartuc.Service
	// TokenService nil leaves the API open; it is meant for loopback only.
	TokenService TokenService
	Logger       logrus.FieldLogger
}

func NewAPI(deps Dependencies) *API {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &API{
		cartSvc:   deps.CartService,
		tokenSvc:  deps.TokenService,
		validator: validate,
		log:       log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: a.log, NoColor: true}))
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json"))

	r.Get("/health", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		if a.tokenSvc != nil {
			r.Use(a.authMiddleware)
		}

		r.Route("/cart/items", func(cr chi.Router) {
			cr.Get("/", a.handleListCartItems)
			cr.Post("/", a.handleAddCartItem)
			cr.Delete("/", a.handleClearCart)
			cr.Get("/{productID}", a.handleGetCartItem)
			cr.Put("/{productID}", a.handleUpsertCartItem)
			cr.Patch("/{productID}", a.handleUpdateCartItemQuantity)
			cr.Delete("/{productID}", a.handleDeleteCartItem)
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.cartSvc.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// respondBadRequest lists the failing request fields when err comes from
// request validation.
func respondBadRequest(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: details})
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	idStr := chi.URLParam(r, key)
	return strconv.ParseInt(idStr, 10, 64)
}

func mapLineItem(item domcart.LineItem) map[string]any {
	return map[string]any{
		"product_id":       item.ProductID,
		"title":            item.Title,
		"thumbnail_url":    item.ThumbnailURL,
		"price":            item.Price,
		"discount_percent": item.DiscountPercent,
		"quantity":         item.Quantity,
	}
}

func mapLineItems(items []domcart.LineItem) map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, mapLineItem(item))
	}
	return map[string]any{"items": out}
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, domcart.ErrConstraintViolation):
		respondError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domcart.ErrStorageUnavailable):
		// driver details stay in the log
		respondError(w, http.StatusServiceUnavailable, domcart.ErrStorageUnavailable)
	default:
		respondError(w, http.StatusInternalServerError, err)
	}
}

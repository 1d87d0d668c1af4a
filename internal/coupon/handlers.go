package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-coupons/internal/cart"
	"github.com/noah-isme/backend-coupons/internal/common"
	"github.com/noah-isme/backend-coupons/internal/obs"
)

// Handler exposes the coupon management and cart evaluation endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	PerPage  int
}

// NewValidator builds a validator that reports JSON field names in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type createCartWiseRequest struct {
	Code               string  `json:"code" validate:"required,notblank,max=255"`
	ExpirationDate     Date    `json:"expirationDate"`
	Description        string  `json:"description"`
	Threshold          float64 `json:"threshold" validate:"required,gt=0"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"required,gt=0,lte=100"`
}

type createProductWiseRequest struct {
	Code               string  `json:"code" validate:"required,notblank,max=255"`
	ExpirationDate     Date    `json:"expirationDate"`
	Description        string  `json:"description"`
	ProductID          int64   `json:"productId" validate:"required,gt=0"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"required,gt=0,lte=100"`
}

type createBxGyRequest struct {
	Code            string          `json:"code" validate:"required,notblank,max=255"`
	ExpirationDate  Date            `json:"expirationDate"`
	Description     string          `json:"description"`
	BuyProducts     map[int64]int64 `json:"buyProducts" validate:"required,min=1,dive,keys,gt=0,endkeys,gte=1"`
	GetProducts     map[int64]int64 `json:"getProducts" validate:"required,min=1,dive,keys,gt=0,endkeys,gte=1"`
	RepetitionLimit int64           `json:"repetitionLimit" validate:"required,gte=1"`
}

type cartItemRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
}

type cartRequest struct {
	Items []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateCartWise handles POST /coupons/cart-wise.
func (h *Handler) CreateCartWise(w http.ResponseWriter, r *http.Request) {
	var req createCartWiseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validCreate(w, req, req.ExpirationDate) {
		return
	}
	c := Coupon{
		Code:           req.Code,
		Type:           TypeCartWise,
		ExpirationDate: req.ExpirationDate.Time,
		Description:    req.Description,
		CartWise: &CartWiseRule{
			Threshold:          decimal.NewFromFloat(req.Threshold),
			DiscountPercentage: decimal.NewFromFloat(req.DiscountPercentage),
		},
	}
	h.create(w, r, c)
}

// CreateProductWise handles POST /coupons/product-wise.
func (h *Handler) CreateProductWise(w http.ResponseWriter, r *http.Request) {
	var req createProductWiseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validCreate(w, req, req.ExpirationDate) {
		return
	}
	c := Coupon{
		Code:           req.Code,
		Type:           TypeProductWise,
		ExpirationDate: req.ExpirationDate.Time,
		Description:    req.Description,
		ProductWise: &ProductWiseRule{
			ProductID:          req.ProductID,
			DiscountPercentage: decimal.NewFromFloat(req.DiscountPercentage),
		},
	}
	h.create(w, r, c)
}

// CreateBxGy handles POST /coupons/bxgy.
func (h *Handler) CreateBxGy(w http.ResponseWriter, r *http.Request) {
	var req createBxGyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validCreate(w, req, req.ExpirationDate) {
		return
	}
	c := Coupon{
		Code:           req.Code,
		Type:           TypeBxGy,
		ExpirationDate: req.ExpirationDate.Time,
		Description:    req.Description,
		BxGy: &BxGyRule{
			BuyProducts:     req.BuyProducts,
			GetProducts:     req.GetProducts,
			RepetitionLimit: req.RepetitionLimit,
		},
	}
	h.create(w, r, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, c Coupon) {
	saved, err := h.Svc.Create(r.Context(), c)
	if err != nil {
		countCreated(c.Type, "error")
		h.writeError(w, err)
		return
	}
	countCreated(c.Type, "ok")
	common.JSON(w, http.StatusCreated, map[string]any{"data": toSummary(saved)})
}

// List handles GET /coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, h.perPage())
	start := (page - 1) * perPage
	if start > len(summaries) {
		start = len(summaries)
	}
	end := start + perPage
	if end > len(summaries) {
		end = len(summaries)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": summaries[start:end],
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: len(summaries),
		},
	})
}

// Get handles GET /coupons/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	summary, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// Applicable handles POST /coupons/applicable-coupons.
func (h *Handler) Applicable(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCart(w, r)
	if !ok {
		return
	}
	applicable, err := h.Svc.FindApplicable(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if obs.CouponDiscoveryTotal != nil {
		obs.CouponDiscoveryTotal.Add(float64(len(applicable)))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": applicable})
}

// Apply handles POST /coupons/apply-coupon/{id}.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	c, ok := h.decodeCart(w, r)
	if !ok {
		return
	}
	result, err := h.Svc.Apply(r.Context(), id, c)
	if err != nil {
		countApplied(applyResult(err))
		h.writeError(w, err)
		return
	}
	countApplied("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// validCreate runs tag validation plus the clock-dependent expiration check.
func (h *Handler) validCreate(w http.ResponseWriter, req any, expiration Date) bool {
	details := map[string]string{}
	if err := h.Validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fieldName(fe)] = validationMessage(fe)
			}
		} else {
			details["request"] = err.Error()
		}
	}
	if expiration.IsZero() {
		details["expirationDate"] = "expiration date is required"
	} else if !expiration.After(time.Now()) {
		details["expirationDate"] = "expiration date must be in the future"
	}
	if len(details) > 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", details)
		return false
	}
	return true
}

func (h *Handler) decodeCart(w http.ResponseWriter, r *http.Request) (cart.Cart, bool) {
	var req cartRequest
	if !h.decode(w, r, &req) {
		return cart.Cart{}, false
	}
	if err := h.Validate.Struct(req); err != nil {
		details := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fieldName(fe)] = validationMessage(fe)
			}
		} else {
			details["request"] = err.Error()
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", details)
		return cart.Cart{}, false
	}
	items := make([]cart.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, cart.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     decimal.NewFromFloat(it.Price),
		})
	}
	return cart.Cart{Items: items}, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, ErrNotApplicable):
		common.JSONError(w, http.StatusBadRequest, "NOT_APPLICABLE", err.Error(), nil)
	case errors.Is(err, ErrDuplicateCode):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
	case errors.Is(err, ErrMissingProductID):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func (h *Handler) perPage() int {
	if h.PerPage > 0 {
		return h.PerPage
	}
	return 50
}

func couponID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return 0, false
	}
	return id, true
}

func countCreated(t Type, result string) {
	if obs.CouponCreatedTotal != nil {
		obs.CouponCreatedTotal.WithLabelValues(string(t), result).Inc()
	}
}

func countApplied(result string) {
	if obs.CouponApplyTotal != nil {
		obs.CouponApplyTotal.WithLabelValues(result).Inc()
	}
}

func applyResult(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotApplicable):
		return "not_applicable"
	default:
		return "error"
	}
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must not exceed " + fe.Param()
	case "max":
		return "must not exceed " + fe.Param() + " characters"
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	default:
		return "is invalid"
	}
}

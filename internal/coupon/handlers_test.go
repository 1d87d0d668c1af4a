package coupon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) *chi.Mux {
	h := &Handler{
		Svc:      &Service{Store: store, Now: fixedNow},
		Validate: NewValidator(),
	}
	r := chi.NewRouter()
	r.Route("/api/v1/coupons", func(v chi.Router) {
		v.Get("/", h.List)
		v.Get("/{id}", h.Get)
		v.Post("/cart-wise", h.CreateCartWise)
		v.Post("/product-wise", h.CreateProductWise)
		v.Post("/bxgy", h.CreateBxGy)
		v.Post("/applicable-coupons", h.Applicable)
		v.Post("/apply-coupon/{id}", h.Apply)
	})
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateCartWiseEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/cart-wise", `{
		"code": "SPRING10",
		"expirationDate": "2030-01-01",
		"description": "10% off carts over 100",
		"threshold": 100,
		"discountPercentage": 10
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotZero(t, body.Data.ID)
	require.Equal(t, "SPRING10", body.Data.Code)
	require.Equal(t, TypeCartWise, body.Data.Type)
	require.True(t, body.Data.IsActive)
	require.NotNil(t, body.Data.Threshold)
	require.Equal(t, float64(100), *body.Data.Threshold)
}

func TestCreateProductWiseEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/product-wise", `{
		"code": "SKU15",
		"expirationDate": "2030-01-01",
		"productId": 42,
		"discountPercentage": 15
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, TypeProductWise, body.Data.Type)
	require.NotNil(t, body.Data.ProductID)
	require.Equal(t, int64(42), *body.Data.ProductID)
}

func TestCreateBxGyEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/bxgy", `{
		"code": "B2G1",
		"expirationDate": "2030-01-01",
		"buyProducts": {"201": 2, "202": 1},
		"getProducts": {"301": 1},
		"repetitionLimit": 2
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, TypeBxGy, body.Data.Type)
	require.Equal(t, int64(2), body.Data.BuyProducts[201])
	require.Equal(t, int64(1), body.Data.GetProducts[301])
}

func TestCreateValidationErrors(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/cart-wise", `{
		"expirationDate": "2020-01-01",
		"threshold": -5,
		"discountPercentage": 150
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	require.Contains(t, body.Error.Details, "code")
	require.Contains(t, body.Error.Details, "threshold")
	require.Contains(t, body.Error.Details, "discountPercentage")
	require.Contains(t, body.Error.Details, "expirationDate")
}

func TestCreateBlankCodeRejected(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/cart-wise", `{
		"code": "   ",
		"expirationDate": "2030-01-01",
		"threshold": 100,
		"discountPercentage": 10
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	require.Equal(t, "must not be blank", body.Error.Details["code"])
}

func TestCreateEmptyBuyProductsRejected(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/bxgy", `{
		"code": "B2G1",
		"expirationDate": "2030-01-01",
		"buyProducts": {},
		"getProducts": {"301": 1},
		"repetitionLimit": 1
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error.Details, "buyProducts")
}

func TestCreateDuplicateCode(t *testing.T) {
	store := newStubStore()
	store.saveErr = ErrDuplicateCode
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/cart-wise", `{
		"code": "SPRING10",
		"expirationDate": "2030-01-01",
		"threshold": 100,
		"discountPercentage": 10
	}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CONFLICT", decodeError(t, rec).Error.Code)
}

func TestGetEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore(productWiseCoupon(7, 42, 15)))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coupons/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(7), body.Data.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/coupons/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/coupons/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpointPagination(t *testing.T) {
	router := newTestRouter(newStubStore(
		cartWiseCoupon(1, 100, 10),
		productWiseCoupon(2, 42, 15),
		bxgyCoupon(3, map[int64]int64{201: 2}, map[int64]int64{301: 1}, 1),
	))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/coupons/?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data       []Summary `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, 3, body.Pagination.TotalItems)
	require.Equal(t, TypeCartWise, body.Data[0].Type)
}

func TestApplicableEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore(cartWiseCoupon(1, 100, 10)))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/applicable-coupons", `{
		"items": [
			{"productId": 101, "quantity": 1, "price": 100},
			{"productId": 102, "quantity": 1, "price": 50}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []Applicable `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, float64(15), body.Data[0].DiscountAmount)
}

func TestApplicableEndpointRejectsEmptyCart(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/applicable-coupons", `{"items": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)
}

func TestApplyEndpoint(t *testing.T) {
	router := newTestRouter(newStubStore(cartWiseCoupon(1, 100, 10)))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/apply-coupon/1", `{
		"items": [
			{"productId": 101, "quantity": 1, "price": 100},
			{"productId": 102, "quantity": 1, "price": 50}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data ApplicationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, float64(150), body.Data.OriginalTotal)
	require.Equal(t, float64(15), body.Data.DiscountAmount)
	require.Equal(t, float64(135), body.Data.FinalTotal)
	require.Equal(t, "CART10", body.Data.AppliedCouponCode)
	require.Len(t, body.Data.UpdatedItems, 2)
}

func TestApplyEndpointNotApplicable(t *testing.T) {
	expired := cartWiseCoupon(1, 100, 10)
	expired.ExpirationDate = date(2025, time.June, 14)
	router := newTestRouter(newStubStore(expired))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/apply-coupon/1", `{
		"items": [{"productId": 101, "quantity": 2, "price": 100}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "NOT_APPLICABLE", decodeError(t, rec).Error.Code)
}

func TestApplyEndpointUnknownCoupon(t *testing.T) {
	router := newTestRouter(newStubStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coupons/apply-coupon/404", `{
		"items": [{"productId": 101, "quantity": 1, "price": 10}]
	}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

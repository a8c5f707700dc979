package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/query"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) QueryProducts(
	ctx context.Context, category string, st query.FilterState,
) (domain.ProductPage, error) {
	args := m.Called(ctx, category, st)
	return args.Get(0).(domain.ProductPage), args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockCatalog) StoreProducts(ctx context.Context, ps []domain.Product) error {
	return m.Called(ctx, ps).Error(0)
}

func (m *MockCatalog) SetVisibility(ctx context.Context, v domain.ProductVisibility) error {
	return m.Called(ctx, v).Error(0)
}

type MockCart struct {
	mock.Mock
}

func (m *MockCart) Items(ctx context.Context, u *domain.User) ([]domain.CartItem, error) {
	args := m.Called(ctx, u)
	items, _ := args.Get(0).([]domain.CartItem)
	return items, args.Error(1)
}

func (m *MockCart) AddItem(
	ctx context.Context, u *domain.User, productID string, qty int,
) ([]domain.CartItem, error) {
	args := m.Called(ctx, u, productID, qty)
	items, _ := args.Get(0).([]domain.CartItem)
	return items, args.Error(1)
}

func (m *MockCart) Clear(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) Begin(ctx context.Context, u *domain.User) (domain.CheckoutState, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.CheckoutState), args.Error(1)
}

func (m *MockCheckout) State(ctx context.Context, u *domain.User) (domain.CheckoutState, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.CheckoutState), args.Error(1)
}

func (m *MockCheckout) SubmitShipping(
	ctx context.Context, u *domain.User, info domain.ShippingInfo,
) (domain.CheckoutState, error) {
	args := m.Called(ctx, u, info)
	return args.Get(0).(domain.CheckoutState), args.Error(1)
}

func (m *MockCheckout) Back(ctx context.Context, u *domain.User) (domain.CheckoutState, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.CheckoutState), args.Error(1)
}

func (m *MockCheckout) SubmitPayment(
	ctx context.Context, u *domain.User, method domain.PaymentMethod,
) (domain.CheckoutState, checkout.Outcome, error) {
	args := m.Called(ctx, u, method)
	return args.Get(0).(domain.CheckoutState), args.Get(1).(checkout.Outcome), args.Error(2)
}

func (m *MockCheckout) Cancel(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockCheckout) FallbackOrders(ctx context.Context, u *domain.User) ([]domain.Order, error) {
	args := m.Called(ctx, u)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(domain.Order), args.Error(1)
}

type fixture struct {
	catalog  *MockCatalog
	cart     *MockCart
	checkout *MockCheckout
	orders   *MockOrders
	handler  http.Handler
}

func newFixture() fixture {
	f := fixture{
		catalog:  &MockCatalog{},
		cart:     &MockCart{},
		checkout: &MockCheckout{},
		orders:   &MockOrders{},
	}
	f.handler = Router{
		Catalog:   f.catalog,
		Cart:      f.cart,
		Checkout:  f.checkout,
		Orders:    f.orders,
		LoginPath: "/login",
	}.Handler()
	return f
}

func (f fixture) do(method, target, body string, user *domain.User) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		r.Header.Set(headerUserID, user.ID)
		r.Header.Set(headerUserEmail, user.Email)
		r.Header.Set(headerUserName, user.Name)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

var alice = &domain.User{ID: "u-1", Email: "alice@example.com", Name: "Alice"}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestFilterStateFromQuery(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		st := FilterStateFromQuery(url.Values{})
		assert.Equal(t, query.NewFilterState(), st)
	})

	t.Run("AllParams", func(t *testing.T) {
		q := url.Values{
			"brand":    {"Sony,Apple", "Samsung", "Sony"},
			"price":    {"100-500"},
			"sub":      {"laptops"},
			"q":        {" pro "},
			"in_stock": {"1"},
			"sort":     {"price-low"},
			"page":     {"3"},
		}
		st := FilterStateFromQuery(q)
		assert.Equal(t, []string{"Sony", "Apple", "Samsung"}, st.Brands)
		assert.Equal(t, "100-500", st.PriceRange)
		assert.Equal(t, "laptops", st.Category)
		assert.Equal(t, "pro", st.Query)
		assert.True(t, st.InStockOnly)
		assert.Equal(t, query.SortPriceLow, st.SortBy)
		assert.Equal(t, 3, st.Page)
	})

	t.Run("PriceRangeCanonical", func(t *testing.T) {
		tests := map[string]string{
			"500-":         "500",
			"5000-0":       "5000",
			"100 - 500.50": "100-500.5",
			"cheap":        "cheap",
		}
		for in, want := range tests {
			st := FilterStateFromQuery(url.Values{"price": {in}})
			assert.Equal(t, want, st.PriceRange, "price=%q", in)
		}
	})

	t.Run("HugePage", func(t *testing.T) {
		st := FilterStateFromQuery(url.Values{"page": {strconv.Itoa(math.MaxInt)}})
		assert.Equal(t, math.MaxInt, st.Page)
	})

	t.Run("BadValues", func(t *testing.T) {
		q := url.Values{
			"sort": {"cheapest"},
			"page": {"x"},
		}
		st := FilterStateFromQuery(q)
		assert.Equal(t, query.SortFeatured, st.SortBy)
		assert.Equal(t, 1, st.Page)
		assert.False(t, st.InStockOnly)
	})
}

func TestProductsHandler(t *testing.T) {
	t.Run("CategoryListing", func(t *testing.T) {
		f := newFixture()
		st := query.NewFilterState().Apply(query.SetBrands{Brands: []string{"Sony"}})
		page := domain.ProductPage{
			Category: "electronics",
			State:    st,
			Page: query.Paginate([]domain.Product{
				{ProductID: "e1", Name: "TV", Brand: "Sony", Price: 500},
			}, 1, 12),
			Summary: query.Summary{
				Brands:   []query.BrandCount{{Brand: "Sony", Count: 1}},
				MinPrice: 500,
				MaxPrice: 500,
				Total:    1,
			},
		}
		f.catalog.On("QueryProducts", mock.Anything, "electronics", st).
			Return(page, nil).Once()

		w := f.do(http.MethodGet, "/v1/categories/electronics/products?brand=Sony", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[ProductPage](t, w)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "e1", got.Items[0].ProductID)
		assert.Equal(t, 1, got.TotalPages)
		assert.False(t, got.HasNext)
		assert.Equal(t, []BrandCount{{Brand: "Sony", Count: 1}}, got.Summary.Brands)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		f.catalog.AssertExpectations(t)
	})

	t.Run("SearchListsWholeCatalog", func(t *testing.T) {
		f := newFixture()
		st := query.NewFilterState().Apply(query.SetQuery{Query: "phone"})
		f.catalog.On("QueryProducts", mock.Anything, "", st).
			Return(domain.ProductPage{State: st, Page: query.Paginate[domain.Product](nil, 1, 12)}, nil).
			Once()

		w := f.do(http.MethodGet, "/v1/products?q=phone", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[ProductPage](t, w)
		assert.Empty(t, got.Items)
		assert.Equal(t, "phone", got.Filters.Query)
		f.catalog.AssertExpectations(t)
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("GetProduct", mock.Anything, "nope").
			Return(domain.Product{}, fmt.Errorf("op: %w", domain.ErrNotFound)).Once()

		w := f.do(http.MethodGet, "/v1/products/nope", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PostProducts", func(t *testing.T) {
		f := newFixture()
		want := []domain.Product{{ProductID: "p1", Name: "Lamp", Price: 12.5, InStock: true}}
		f.catalog.On("StoreProducts", mock.Anything, want).Return(nil).Once()

		body := `[{"product_id":"p1","name":"Lamp","price":12.5,"in_stock":true}]`
		w := f.do(http.MethodPost, "/v1/products", body, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"stored":1}`, w.Body.String())
		f.catalog.AssertExpectations(t)
	})

	t.Run("PostProductsInvalid", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("StoreProducts", mock.Anything, mock.Anything).
			Return(domain.ErrInvalidProduct("negative price")).Once()

		w := f.do(http.MethodPost, "/v1/products", `[{"product_id":"p1","price":-1}]`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PostProductsBadJSON", func(t *testing.T) {
		f := newFixture()
		w := f.do(http.MethodPost, "/v1/products", `[{`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.catalog.AssertNotCalled(t, "StoreProducts", mock.Anything, mock.Anything)
	})

	t.Run("WrongMediaType", func(t *testing.T) {
		f := newFixture()
		r := httptest.NewRequest(http.MethodPost, "/v1/products", strings.NewReader(`[]`))
		r.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("Visibility", func(t *testing.T) {
		f := newFixture()
		v := domain.ProductVisibility{ProductID: "p1", Hidden: true}
		f.catalog.On("SetVisibility", mock.Anything, v).Return(nil).Once()

		w := f.do(http.MethodPost, "/v1/products/visibility", `{"product_id":" p1 ","hidden":true}`, nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
		f.catalog.AssertExpectations(t)
	})

	t.Run("VisibilityStreamDisabled", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("SetVisibility", mock.Anything, mock.Anything).
			Return(fmt.Errorf("op: %w", domain.ErrUnavailable)).Once()

		w := f.do(http.MethodPost, "/v1/products/visibility", `{"product_id":"p1"}`, nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCartHandler(t *testing.T) {
	t.Run("Anonymous", func(t *testing.T) {
		f := newFixture()
		var nilUser *domain.User
		f.cart.On("Items", mock.Anything, nilUser).
			Return(nil, fmt.Errorf("op: %w", checkout.ErrUnauthenticated)).Once()

		w := f.do(http.MethodGet, "/v1/cart", "", nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		got := decodeBody[ErrorResponse](t, w)
		assert.Equal(t, "/login?callbackUrl=%2Fv1%2Fcart", got.LoginURL)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		f := newFixture()
		f.cart.On("Items", mock.Anything, alice).Return(nil, nil).Once()

		w := f.do(http.MethodGet, "/v1/cart", "", alice)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	})

	t.Run("AddItem", func(t *testing.T) {
		f := newFixture()
		items := []domain.CartItem{{ProductID: "p1", Name: "Lamp", Price: 10, Quantity: 2}}
		f.cart.On("AddItem", mock.Anything, alice, "p1", 2).Return(items, nil).Once()

		w := f.do(http.MethodPost, "/v1/cart/items", `{"product_id":"p1","quantity":2}`, alice)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[Cart](t, w)
		assert.Equal(t, items, got.Items)
		f.cart.AssertExpectations(t)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		f := newFixture()
		f.cart.On("AddItem", mock.Anything, alice, "p2", 1).
			Return(nil, fmt.Errorf("op: %w", service.ErrOutOfStock)).Once()

		w := f.do(http.MethodPost, "/v1/cart/items", `{"product_id":"p2","quantity":1}`, alice)

		require.Equal(t, http.StatusConflict, w.Code)
		got := decodeBody[ErrorResponse](t, w)
		assert.Equal(t, service.ErrOutOfStock.Error(), got.Error)
	})

	t.Run("Clear", func(t *testing.T) {
		f := newFixture()
		f.cart.On("Clear", mock.Anything, alice).Return(nil).Once()

		w := f.do(http.MethodDelete, "/v1/cart", "", alice)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestCheckoutHandler(t *testing.T) {
	shippingState := domain.CheckoutState{
		ID:     "c1",
		UserID: alice.ID,
		Step:   domain.StepShipping,
		Cart:   []domain.CartItem{{ProductID: "p1", Price: 10, Quantity: 1}},
	}

	t.Run("Begin", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("Begin", mock.Anything, alice).Return(shippingState, nil).Once()

		w := f.do(http.MethodPost, "/v1/checkout", "", alice)

		require.Equal(t, http.StatusCreated, w.Code)
		got := decodeBody[domain.CheckoutState](t, w)
		assert.Equal(t, domain.StepShipping, got.Step)
	})

	t.Run("BeginEmptyCart", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("Begin", mock.Anything, alice).
			Return(domain.CheckoutState{}, fmt.Errorf("op: %w", checkout.ErrEmptyCart)).Once()

		w := f.do(http.MethodPost, "/v1/checkout", "", alice)

		require.Equal(t, http.StatusConflict, w.Code)
		got := decodeBody[ErrorResponse](t, w)
		assert.Equal(t, checkout.ErrEmptyCart.Error(), got.Error)
	})

	t.Run("ShippingMissingFields", func(t *testing.T) {
		f := newFixture()
		info := domain.ShippingInfo{FirstName: "Alice"}
		verr := &checkout.ValidationError{
			Step:    domain.StepShipping,
			Missing: []string{"last_name", "phone"},
		}
		f.checkout.On("SubmitShipping", mock.Anything, alice, info).
			Return(shippingState, fmt.Errorf("op: %w", verr)).Once()

		w := f.do(http.MethodPost, "/v1/checkout/shipping", `{"first_name":"Alice"}`, alice)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		got := decodeBody[ErrorResponse](t, w)
		assert.Equal(t, []string{"last_name", "phone"}, got.Missing)
	})

	t.Run("BackFromShipping", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("Back", mock.Anything, alice).
			Return(shippingState, fmt.Errorf("op: %w", checkout.ErrInvalidTransition)).Once()

		w := f.do(http.MethodPost, "/v1/checkout/back", "", alice)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("StateNotFound", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("State", mock.Anything, alice).
			Return(domain.CheckoutState{}, domain.ErrNotFound).Once()

		w := f.do(http.MethodGet, "/v1/checkout", "", alice)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PaymentDegraded", func(t *testing.T) {
		f := newFixture()
		order := domain.Order{ID: "local_1", OrderNumber: "ORD-1-1"}
		st := shippingState
		st.Step = domain.StepConfirmation
		st.Order = &order
		st.Degraded = true
		outcome := checkout.Outcome{
			Order:    order,
			Degraded: true,
			Redirect: checkout.Redirect{To: "/", After: 3 * time.Second},
		}
		f.checkout.On("SubmitPayment", mock.Anything, alice, domain.PaymentCashOnDelivery).
			Return(st, outcome, nil).Once()

		w := f.do(http.MethodPost, "/v1/checkout/payment", `{"payment_method":"cash_on_delivery"}`, alice)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[PaymentResponse](t, w)
		assert.True(t, got.Degraded)
		assert.NotEmpty(t, got.Notice)
		assert.Equal(t, "ORD-1-1", got.Order.OrderNumber)
		assert.Equal(t, Redirect{To: "/", AfterMs: 3000}, got.Redirect)
		assert.Equal(t, domain.StepConfirmation, got.Checkout.Step)
	})

	t.Run("PaymentInProgress", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("SubmitPayment", mock.Anything, alice, domain.PaymentCreditCard).
			Return(domain.CheckoutState{}, checkout.Outcome{},
				fmt.Errorf("op: %w", checkout.ErrSubmitInProgress)).Once()

		w := f.do(http.MethodPost, "/v1/checkout/payment", `{"payment_method":"credit_card"}`, alice)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("PaymentFailed", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("SubmitPayment", mock.Anything, alice, domain.PaymentCreditCard).
			Return(shippingState, checkout.Outcome{},
				fmt.Errorf("op: %w: disk full", checkout.ErrSubmitFailed)).Once()

		w := f.do(http.MethodPost, "/v1/checkout/payment", `{"payment_method":"credit_card"}`, alice)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Cancel", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("Cancel", mock.Anything, alice).Return(nil).Once()

		w := f.do(http.MethodDelete, "/v1/checkout", "", alice)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.checkout.AssertExpectations(t)
	})

	t.Run("CancelWhileSubmitting", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("Cancel", mock.Anything, alice).
			Return(fmt.Errorf("op: %w", checkout.ErrSubmitInProgress)).Once()

		w := f.do(http.MethodDelete, "/v1/checkout", "", alice)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("LocalOrders", func(t *testing.T) {
		f := newFixture()
		f.checkout.On("FallbackOrders", mock.Anything, alice).Return(nil, nil).Once()

		w := f.do(http.MethodGet, "/v1/checkout/local-orders", "", alice)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"orders":[]}`, w.Body.String())
	})
}

func TestOrdersHandler(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFixture()
		created := domain.Order{ID: "o1", OrderNumber: "ORD-2-7", CustomerName: "Alice"}
		f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool {
			return o.CustomerName == "Alice"
		})).Return(created, nil).Once()

		w := f.do(http.MethodPost, "/v1/orders", `{"customerName":"Alice"}`, nil)

		require.Equal(t, http.StatusCreated, w.Code)
		got := decodeBody[domain.Order](t, w)
		assert.Equal(t, "ORD-2-7", got.OrderNumber)
	})

	t.Run("Invalid", func(t *testing.T) {
		f := newFixture()
		f.orders.On("CreateOrder", mock.Anything, mock.Anything).
			Return(domain.Order{}, fmt.Errorf("%w order: no items", domain.ErrInvalid)).Once()

		w := f.do(http.MethodPost, "/v1/orders", `{"customerName":"Alice"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWithSession(t *testing.T) {
	var got *domain.User
	h := WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = userFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Nil(t, got)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(headerUserID, " u-9 ")
	r.Header.Set(headerUserEmail, "bob@example.com")
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, got)
	assert.Equal(t, domain.User{ID: "u-9", Email: "bob@example.com"}, *got)
}

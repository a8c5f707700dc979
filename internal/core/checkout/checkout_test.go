package checkout_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(
	ctx context.Context, o domain.Order,
) (domain.Order, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(domain.Order), args.Error(1)
}

type MockFallbackStore struct {
	mock.Mock
}

func (m *MockFallbackStore) AppendOrder(
	ctx context.Context, userID string, o domain.Order,
) error {
	return m.Called(ctx, userID, o).Error(0)
}

func (m *MockFallbackStore) ListOrders(
	ctx context.Context, userID string,
) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockCartClearer struct {
	mock.Mock
}

func (m *MockCartClearer) ClearCart(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

var (
	testNow  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testUser = &domain.User{ID: "user-1", Email: "ali@example.com"}
	testCart = []domain.CartItem{
		{ProductID: "p1", Name: "Phone", Price: 199.99, Quantity: 2, Image: "/p1.jpg"},
		{ProductID: "p2", Name: "Case", Price: 0.1, Quantity: 3},
	}
	testShipping = domain.ShippingInfo{
		FirstName: "Ali",
		LastName:  "Khan",
		Email:     "ali@example.com",
		Phone:     "+92 300 0000000",
		Address:   "1 Mall Road",
		City:      "Lahore",
	}
)

func paymentState(t *testing.T) domain.CheckoutState {
	t.Helper()
	st, err := checkout.Begin("co-1", testUser, testCart, testNow)
	require.NoError(t, err)
	st, err = checkout.SubmitShipping(st, testShipping, "Pakistan", testNow)
	require.NoError(t, err)
	return st
}

func TestBegin(t *testing.T) {
	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := checkout.Begin("co-1", nil, testCart, testNow)
		assert.ErrorIs(t, err, checkout.ErrUnauthenticated)
	})

	t.Run("EmptyCartNeverReachesShipping", func(t *testing.T) {
		st, err := checkout.Begin("co-1", testUser, nil, testNow)
		assert.ErrorIs(t, err, checkout.ErrEmptyCart)
		assert.Empty(t, st.Step)
	})

	t.Run("SnapshotsCart", func(t *testing.T) {
		cart := []domain.CartItem{{ProductID: "p1", Price: 1, Quantity: 1}}
		st, err := checkout.Begin("co-1", testUser, cart, testNow)
		require.NoError(t, err)

		cart[0].Quantity = 99
		assert.Equal(t, domain.StepShipping, st.Step)
		assert.Equal(t, 1, st.Cart[0].Quantity)
		assert.Equal(t, testUser.Email, st.Shipping.Email)
	})
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t,
		"/auth/login?callbackUrl=%2Fcheckout",
		checkout.LoginURL("/auth/login", "/checkout"),
	)
}

func TestSubmitShipping(t *testing.T) {
	start, err := checkout.Begin("co-1", testUser, testCart, testNow)
	require.NoError(t, err)

	t.Run("MissingFieldsStayPut", func(t *testing.T) {
		info := testShipping
		info.Phone = "  "
		info.City = ""

		st, err := checkout.SubmitShipping(start, info, "Pakistan", testNow)

		var vErr *checkout.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"phone", "city"}, vErr.Missing)
		assert.Equal(t, start, st)
	})

	t.Run("DefaultsCountry", func(t *testing.T) {
		st, err := checkout.SubmitShipping(start, testShipping, "Pakistan", testNow)
		require.NoError(t, err)
		assert.Equal(t, domain.StepPayment, st.Step)
		assert.Equal(t, "Pakistan", st.Shipping.Country)
	})

	t.Run("KeepsGivenCountry", func(t *testing.T) {
		info := testShipping
		info.Country = "UAE"
		st, err := checkout.SubmitShipping(start, info, "Pakistan", testNow)
		require.NoError(t, err)
		assert.Equal(t, "UAE", st.Shipping.Country)
	})

	t.Run("WrongStep", func(t *testing.T) {
		st := paymentState(t)
		_, err := checkout.SubmitShipping(st, testShipping, "Pakistan", testNow)
		assert.ErrorIs(t, err, checkout.ErrInvalidTransition)
	})
}

func TestBack(t *testing.T) {
	st := paymentState(t)

	back, err := checkout.Back(st, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, back.Step)
	assert.Equal(t, st.Shipping, back.Shipping, "form data is retained")

	_, err = checkout.Back(back, testNow)
	assert.ErrorIs(t, err, checkout.ErrInvalidTransition)

	confirmed := st
	confirmed.Step = domain.StepConfirmation
	_, err = checkout.Back(confirmed, testNow)
	assert.ErrorIs(t, err, checkout.ErrInvalidTransition)
}

func TestMarkSubmitting(t *testing.T) {
	st := paymentState(t)

	t.Run("InvalidMethod", func(t *testing.T) {
		_, err := checkout.MarkSubmitting(st, "bitcoin", testNow)
		var vErr *checkout.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("DoubleSubmit", func(t *testing.T) {
		marked, err := checkout.MarkSubmitting(st, domain.PaymentCreditCard, testNow)
		require.NoError(t, err)
		assert.True(t, marked.Submitting)

		_, err = checkout.MarkSubmitting(marked, domain.PaymentCreditCard, testNow.Add(time.Second))
		assert.ErrorIs(t, err, checkout.ErrSubmitInProgress)
	})

	t.Run("StaleFlagIsIgnored", func(t *testing.T) {
		marked, err := checkout.MarkSubmitting(st, domain.PaymentCreditCard, testNow)
		require.NoError(t, err)

		later := testNow.Add(checkout.SubmitStaleAfter + time.Second)
		_, err = checkout.MarkSubmitting(marked, domain.PaymentCashOnDelivery, later)
		assert.NoError(t, err)
	})
}

func TestSubmitPending(t *testing.T) {
	st := paymentState(t)
	assert.False(t, checkout.SubmitPending(st, testNow))

	marked, err := checkout.MarkSubmitting(st, domain.PaymentCreditCard, testNow)
	require.NoError(t, err)
	assert.True(t, checkout.SubmitPending(marked, testNow.Add(time.Second)))
	assert.False(t, checkout.SubmitPending(marked, testNow.Add(checkout.SubmitStaleAfter)))
}

func TestBuildOrder(t *testing.T) {
	st := paymentState(t)
	st.PaymentMethod = domain.PaymentCashOnDelivery

	o := checkout.BuildOrder(st)

	assert.Equal(t, "Ali Khan", o.CustomerName)
	assert.Equal(t, "1 Mall Road", o.ShippingAddress.Street)
	assert.Equal(t, "Pakistan", o.ShippingAddress.Country)
	assert.Equal(t, 400.28, o.Subtotal)
	assert.Equal(t, o.Subtotal, o.Total)
	assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)
	require.NotNil(t, o.UserID)
	assert.Equal(t, "user-1", *o.UserID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, domain.OrderItem{
		ProductID: "p1", ProductName: "Phone", Quantity: 2, Price: 199.99, Image: "/p1.jpg",
	}, o.Items[0])

	st.UserID = ""
	assert.Nil(t, checkout.BuildOrder(st).UserID)
}

func newFlow(
	oc *MockOrderCreator, fs *MockFallbackStore, cc *MockCartClearer,
) checkout.Flow {
	return checkout.NewFlow(oc, fs, cc,
		checkout.Config{HomePath: "/", RedirectDelay: 3 * time.Second},
		checkout.WithClock(func() time.Time { return testNow }),
		checkout.WithRand(func(n int) int { return 7 % n }),
	)
}

func submittingState(t *testing.T) domain.CheckoutState {
	t.Helper()
	st, err := checkout.MarkSubmitting(paymentState(t), domain.PaymentCashOnDelivery, testNow)
	require.NoError(t, err)
	return st
}

func TestFlowSubmitPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)
		st := submittingState(t)
		created := checkout.BuildOrder(st)
		created.ID = "srv-1"
		created.OrderNumber = "ORD-1"

		oc.On("CreateOrder", mock.Anything, checkout.BuildOrder(st)).Return(created, nil)
		cc.On("ClearCart", mock.Anything, "user-1").Return(nil)

		next, out, err := newFlow(oc, fs, cc).SubmitPayment(t.Context(), st)
		require.NoError(t, err)

		assert.Equal(t, domain.StepConfirmation, next.Step)
		assert.False(t, next.Submitting)
		assert.False(t, next.Degraded)
		assert.False(t, out.Degraded)
		assert.NoError(t, out.RemoteErr)
		assert.Equal(t, "ORD-1", out.Order.OrderNumber)
		assert.Equal(t, checkout.Redirect{To: "/", After: 3 * time.Second}, out.Redirect)
		fs.AssertNotCalled(t, "AppendOrder", mock.Anything, mock.Anything, mock.Anything)
		oc.AssertExpectations(t)
		cc.AssertExpectations(t)
	})

	t.Run("RemoteFailureFallsBackLocally", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)
		st := submittingState(t)
		remoteErr := errors.New("order api: status 500")

		oc.On("CreateOrder", mock.Anything, mock.Anything).Return(domain.Order{}, remoteErr)
		fs.On("AppendOrder", mock.Anything, "user-1", mock.MatchedBy(func(o domain.Order) bool {
			return strings.HasPrefix(o.ID, "local_1740830400000_") &&
				o.OrderNumber == "ORD-1740830400000-7" &&
				o.Status == domain.OrderStatusPending &&
				o.CreatedAt.Equal(testNow)
		})).Return(nil)
		cc.On("ClearCart", mock.Anything, "user-1").Return(nil)

		next, out, err := newFlow(oc, fs, cc).SubmitPayment(t.Context(), st)
		require.NoError(t, err)

		assert.Equal(t, domain.StepConfirmation, next.Step)
		assert.True(t, next.Degraded)
		assert.True(t, out.Degraded)
		assert.ErrorIs(t, out.RemoteErr, remoteErr)
		assert.NotEmpty(t, out.Order.OrderNumber)
		assert.Equal(t, "local_1740830400000_777777777", out.Order.ID)
		require.NotNil(t, next.Order)
		assert.Equal(t, out.Order, *next.Order)
		fs.AssertExpectations(t)
		cc.AssertExpectations(t)
	})

	t.Run("FallbackFailureStaysOnPayment", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)
		st := submittingState(t)

		oc.On("CreateOrder", mock.Anything, mock.Anything).Return(domain.Order{}, errors.New("down"))
		fs.On("AppendOrder", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

		next, _, err := newFlow(oc, fs, cc).SubmitPayment(t.Context(), st)
		assert.ErrorIs(t, err, checkout.ErrSubmitFailed)
		assert.Equal(t, domain.StepPayment, next.Step)
		assert.False(t, next.Submitting, "user must not be stuck")
		cc.AssertNotCalled(t, "ClearCart", mock.Anything, mock.Anything)
	})

	t.Run("CartClearFailureKeepsOrder", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)
		st := submittingState(t)

		oc.On("CreateOrder", mock.Anything, mock.Anything).Return(domain.Order{OrderNumber: "ORD-2"}, nil)
		cc.On("ClearCart", mock.Anything, "user-1").Return(errors.New("redis down"))

		next, out, err := newFlow(oc, fs, cc).SubmitPayment(t.Context(), st)
		require.NoError(t, err)
		assert.Equal(t, domain.StepConfirmation, next.Step)
		assert.Equal(t, "ORD-2", out.Order.OrderNumber)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)
		st := submittingState(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		next, _, err := newFlow(oc, fs, cc).SubmitPayment(ctx, st)
		assert.ErrorIs(t, err, checkout.ErrSubmitFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, next.Submitting)
		oc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("RequiresMarkSubmitting", func(t *testing.T) {
		oc, fs, cc := new(MockOrderCreator), new(MockFallbackStore), new(MockCartClearer)

		_, _, err := newFlow(oc, fs, cc).SubmitPayment(t.Context(), paymentState(t))
		assert.ErrorIs(t, err, checkout.ErrInvalidTransition)
	})
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type jsonSerde struct{}

func (jsonSerde) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonSerde) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	return args.Get(0).(kgo.ProduceResults)
}

func (m *MockProducerClient) Close() {
	m.Called()
}

type MockConsumerClient struct {
	mock.Mock
}

func (m *MockConsumerClient) PollFetches(ctx context.Context) kgo.Fetches {
	return m.Called(ctx).Get(0).(kgo.Fetches)
}

func (m *MockConsumerClient) CommitUncommittedOffsets(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConsumerClient) Close() {
	m.Called()
}

type MockProductsSaver struct {
	mock.Mock
}

func (m *MockProductsSaver) StoreProducts(
	ctx context.Context, ps []domain.Product,
) error {
	return m.Called(ctx, ps).Error(0)
}

type MockGokaEmitter struct {
	mock.Mock
}

func (m *MockGokaEmitter) EmitSync(key string, msg any) error {
	return m.Called(key, msg).Error(0)
}

func (m *MockGokaEmitter) Finish() error {
	return m.Called().Error(0)
}

type fakeView map[string]any

func (fakeView) Run(context.Context) error { return nil }

func (v fakeView) Get(key string) (any, error) {
	if key == "broken" {
		return nil, errors.New("not recovered")
	}
	return v[key], nil
}

func TestHiddenValueCodec(t *testing.T) {
	var c hiddenValueCodec

	data, err := c.Encode(hiddenValue(true))
	require.NoError(t, err)
	assert.Equal(t, []byte("true"), data)

	v, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, hiddenValue(true), v)

	_, err = c.Encode(true)
	assert.ErrorIs(t, err, ErrInvalidValueType)

	_, err = c.Decode([]byte("maybe"))
	assert.Error(t, err)
}

func TestVisibilityEventCodec(t *testing.T) {
	c := newVisibilityEventCodec(jsonSerde{})

	in := schema.ProductVisibilityV1{ProductID: "p1", Hidden: true}
	data, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = c.Encode(domain.ProductVisibility{})
	assert.ErrorIs(t, err, ErrInvalidValueType)
}

func TestOrdersProducer(t *testing.T) {
	userID := "u1"
	order := domain.Order{
		ID:            "o1",
		OrderNumber:   "ORD-1-1",
		UserID:        &userID,
		CustomerName:  "Sara Khan",
		CustomerEmail: "sara@example.com",
		Items: []domain.OrderItem{
			{ProductID: "p1", ProductName: "Phone", Quantity: 2, Price: 100},
		},
		Subtotal:      200,
		Total:         200,
		PaymentMethod: domain.PaymentCreditCard,
		CreatedAt:     time.UnixMilli(1740830400000).UTC(),
	}

	t.Run("Produces", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{}})

		p, err := NewOrdersProducer(
			ProducerTestClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		require.NoError(t, p.ProduceOrderPlaced(t.Context(), order))

		rs := cl.Calls[0].Arguments.Get(1).([]*kgo.Record)
		require.Len(t, rs, 1)
		assert.Equal(t, []byte("o1"), rs[0].Key)
		assert.Equal(t, order.CreatedAt, rs[0].Timestamp)
		require.Len(t, rs[0].Headers, 1)
		assert.Equal(t, "order.placed", string(rs[0].Headers[0].Value))

		var got schema.OrderPlacedV1
		require.NoError(t, json.Unmarshal(rs[0].Value, &got))
		assert.Equal(t, "ORD-1-1", got.OrderNumber)
		assert.Equal(t, "credit_card", got.PaymentMethod)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
	})

	t.Run("BrokerError", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{Err: errors.New("not leader")}})

		p, err := NewOrdersProducer(
			ProducerTestClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		assert.Error(t, p.ProduceOrderPlaced(t.Context(), order))
	})

	t.Run("TooFewOpts", func(t *testing.T) {
		_, err := NewOrdersProducer(ProducerEncoderOpt(jsonSerde{}))
		assert.ErrorIs(t, err, ErrTooFewOpts)
	})
}

func TestProductsConsumerProcessFetches(t *testing.T) {
	valid, err := json.Marshal(schema.ProductV1{
		ProductID: "e1", Name: "Galaxy S24", Price: 999, Rating: 4.6,
	})
	require.NoError(t, err)
	invalid, err := json.Marshal(schema.ProductV1{ProductID: "e2", Rating: 9})
	require.NoError(t, err)

	fetches := kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "catalog-products",
			Partitions: []kgo.FetchPartition{{
				Partition: 0,
				Records: []*kgo.Record{
					{Value: valid},
					{Value: []byte("{broken")},
					{Value: invalid},
				},
			}},
		}},
	}}

	saver := new(MockProductsSaver)
	saver.On("StoreProducts", mock.Anything, []domain.Product{
		{ProductID: "e1", Name: "Galaxy S24", Price: 999, Rating: 4.6},
	}).Return(nil)

	c, err := NewProductsConsumer(
		ConsumerTestClientOpt(new(MockConsumerClient)),
		ConsumerDecoderOpt(jsonSerde{}),
		ProductsConsumerSaverOpt(saver),
	)
	require.NoError(t, err)

	require.NoError(t, c.processFetches(t.Context(), fetches))
	saver.AssertExpectations(t)
}

func TestNewProductsConsumerTooFewOpts(t *testing.T) {
	_, err := NewProductsConsumer(ConsumerDecoderOpt(jsonSerde{}))
	assert.ErrorIs(t, err, ErrTooFewOpts)
}

func TestVisibilityEmitter(t *testing.T) {
	ge := new(MockGokaEmitter)
	ge.On("EmitSync", "p1", schema.ProductVisibilityV1{ProductID: "p1", Hidden: true}).
		Return(nil)
	ge.On("Finish").Return(nil)

	e := VisibilityEmitter{opPrefix: "VisibilityEmitter", ge: ge}
	err := e.EmitVisibility(
		t.Context(), domain.ProductVisibility{ProductID: "p1", Hidden: true},
	)
	require.NoError(t, err)
	e.Close()
	ge.AssertExpectations(t)
}

func TestVisibilityViewIsHidden(t *testing.T) {
	v := &VisibilityView{
		opPrefix: "VisibilityView",
		gv: fakeView{
			"p1":  hiddenValue(true),
			"p2":  hiddenValue(false),
			"odd": "true",
		},
	}

	assert.True(t, v.IsHidden("p1"))
	assert.False(t, v.IsHidden("p2"))
	assert.False(t, v.IsHidden("unknown"))
	assert.False(t, v.IsHidden("odd"))
	assert.False(t, v.IsHidden("broken"))
}

type flakyHandler struct {
	failures int
	calls    int
}

func (h *flakyHandler) processFetches(context.Context, kgo.Fetches) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("storage is down")
	}
	return nil
}

func oneRecordFetches() kgo.Fetches {
	return kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "catalog-products",
			Partitions: []kgo.FetchPartition{{
				Records: []*kgo.Record{{Value: []byte("{}")}},
			}},
		}},
	}}
}

func TestConsumerConsume(t *testing.T) {
	noWait := func(int) time.Duration { return 0 }

	t.Run("RetriesBatchThenCommits", func(t *testing.T) {
		cl := new(MockConsumerClient)
		cl.On("PollFetches", mock.Anything).Return(oneRecordFetches()).Once()
		cl.On("CommitUncommittedOffsets", mock.Anything).Return(nil).Once()
		h := &flakyHandler{failures: 2}

		c := consumer{opPrefix: "test", handler: h, cl: cl, backoff: noWait}
		require.NoError(t, c.consume(t.Context()))

		assert.Equal(t, 3, h.calls)
		cl.AssertExpectations(t)
	})

	t.Run("SkipsPoisonBatch", func(t *testing.T) {
		cl := new(MockConsumerClient)
		cl.On("PollFetches", mock.Anything).Return(oneRecordFetches()).Once()
		cl.On("CommitUncommittedOffsets", mock.Anything).Return(nil).Once()
		h := &flakyHandler{failures: processAttempts}

		c := consumer{opPrefix: "test", handler: h, cl: cl, backoff: noWait}
		require.NoError(t, c.consume(t.Context()))

		assert.Equal(t, processAttempts, h.calls)
		cl.AssertExpectations(t)
	})

	t.Run("EmptyPollDoesNotCommit", func(t *testing.T) {
		cl := new(MockConsumerClient)
		cl.On("PollFetches", mock.Anything).Return(kgo.Fetches{}).Once()
		h := &flakyHandler{}

		c := consumer{opPrefix: "test", handler: h, cl: cl, backoff: noWait}
		require.NoError(t, c.consume(t.Context()))

		assert.Zero(t, h.calls)
		cl.AssertNotCalled(t, "CommitUncommittedOffsets", mock.Anything)
	})

	t.Run("RunStopsOnClosedClient", func(t *testing.T) {
		cl := new(MockConsumerClient)
		cl.On("PollFetches", mock.Anything).
			Return(kgo.NewErrFetch(kgo.ErrClientClosed)).Once()

		c := consumer{opPrefix: "test", handler: &flakyHandler{}, cl: cl, backoff: noWait}
		done := make(chan struct{})
		go func() {
			c.run(t.Context())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consumer did not stop")
		}
		cl.AssertExpectations(t)
	})
}

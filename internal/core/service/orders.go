package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.OrderCreator = OrderService{}

// OrderService backs the order creation endpoint.
type OrderService struct {
	storage  port.OrdersStorage
	producer port.OrderEventsProducer
	now      func() time.Time
}

type OrderOpt func(*OrderService)

// WithOrderEvents publishes an event for every stored order.
func WithOrderEvents(p port.OrderEventsProducer) OrderOpt {
	return func(s *OrderService) {
		s.producer = p
	}
}

func WithOrderClock(now func() time.Time) OrderOpt {
	return func(s *OrderService) {
		s.now = now
	}
}

func NewOrders(storage port.OrdersStorage, opts ...OrderOpt) OrderService {
	s := OrderService{storage: storage, now: time.Now}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// CreateOrder validates and stores the order and returns it with the id,
// number, status and creation time assigned.
func (s OrderService) CreateOrder(
	ctx context.Context, o domain.Order,
) (domain.Order, error) {
	const op = "OrderService.CreateOrder"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := o.Validate(); err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	o.ID = uuid.NewString()
	o.OrderNumber = domain.NewOrderNumber(now, rand.IntN(1000))
	o.Status = domain.OrderStatusPending
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.PaymentStatusPending
	}
	o.CreatedAt = now

	if err := s.storage.StoreOrder(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.producer != nil {
		if err := s.producer.ProduceOrderPlaced(ctx, o); err != nil {
			log.Error("failed to publish order placed", "err", err, "orderID", o.ID)
		}
	}

	log.Info("order created", "orderID", o.ID, "orderNumber", o.OrderNumber)
	return o, nil
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.OrdersStorage = OrdersRepository{}

type OrdersRepository struct {
	sqldb sqldb
}

func NewOrdersRepository(sqldb sqldb) OrdersRepository {
	return OrdersRepository{sqldb}
}

// StoreOrder inserts the order. Address and items are kept as JSON
// documents in the wire format of the order endpoint.
func (r OrdersRepository) StoreOrder(ctx context.Context, o domain.Order) error {
	const op = "OrdersRepository.StoreOrder"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	addressB, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	itemsB, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, user_id, customer_name, customer_email,
			customer_phone, shipping_address, items, subtotal, total,
			payment_method, payment_status, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`

	_, err = r.sqldb.ExecContext(ctx, query,
		o.ID, o.OrderNumber, o.UserID, o.CustomerName, o.CustomerEmail,
		o.CustomerPhone, string(addressB), string(itemsB), o.Subtotal, o.Total,
		string(o.PaymentMethod), o.PaymentStatus, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

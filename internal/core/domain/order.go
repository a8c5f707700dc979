package domain

import (
	"fmt"
	"strconv"
	"time"
)

const (
	OrderStatusPending   = "pending"
	PaymentStatusPending = "pending"
)

type (
	Order struct {
		ID              string        `json:"_id,omitempty"`
		OrderNumber     string        `json:"orderNumber,omitempty"`
		CustomerName    string        `json:"customerName"`
		CustomerEmail   string        `json:"customerEmail"`
		CustomerPhone   string        `json:"customerPhone"`
		ShippingAddress Address       `json:"shippingAddress"`
		Items           []OrderItem   `json:"items"`
		Subtotal        float64       `json:"subtotal"`
		Total           float64       `json:"total"`
		PaymentMethod   PaymentMethod `json:"paymentMethod"`
		PaymentStatus   string        `json:"paymentStatus"`
		Status          string        `json:"status,omitempty"`
		UserID          *string       `json:"userId"`
		CreatedAt       time.Time     `json:"createdAt,omitzero"`
	}

	Address struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		Country string `json:"country"`
	}

	OrderItem struct {
		ProductID   string  `json:"productId"`
		ProductName string  `json:"productName"`
		Quantity    int     `json:"quantity"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
	}
)

// Validate checks the order payload accepted by the order creation endpoint.
func (o Order) Validate() error {
	switch {
	case o.CustomerName == "":
		return fmt.Errorf("%w order: empty customer name", ErrInvalid)
	case o.CustomerEmail == "":
		return fmt.Errorf("%w order: empty customer email", ErrInvalid)
	case len(o.Items) == 0:
		return fmt.Errorf("%w order: no items", ErrInvalid)
	case !o.PaymentMethod.Valid():
		return fmt.Errorf("%w order: unknown payment method %q", ErrInvalid, o.PaymentMethod)
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("%w order: bad item %q", ErrInvalid, it.ProductID)
		}
	}
	return nil
}

// NewOrderNumber formats a human readable order number, ORD-<unix ms>-<n>.
func NewOrderNumber(now time.Time, n int) string {
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.Itoa(n)
}

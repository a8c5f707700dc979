package schema

import "time"

const OrderPlacedSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.orders",
	"name": "order_placed",
	"fields": [
		{"name": "order_id", "type": "string"},
		{"name": "order_number", "type": "string"},
		{"name": "user_id", "type": ["null", "string"], "default": null},
		{"name": "customer_name", "type": "string"},
		{"name": "customer_email", "type": "string"},
		{"name": "customer_phone", "type": "string"},
		{"name": "shipping_address", "type": {
			"type": "record",
			"name": "address",
			"fields": [
				{"name": "street", "type": "string"},
				{"name": "city", "type": "string"},
				{"name": "country", "type": "string"}
			]
		}},
		{"name": "items", "type": {
			"type": "array",
			"items": {
				"type": "record",
				"name": "order_item",
				"fields": [
					{"name": "product_id", "type": "string"},
					{"name": "product_name", "type": "string"},
					{"name": "quantity", "type": "int"},
					{"name": "price", "type": "double"}
				]
			}
		}},
		{"name": "subtotal", "type": "double"},
		{"name": "total", "type": "double"},
		{"name": "payment_method", "type": "string"},
		{"name": "payment_status", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "created_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type (
	OrderPlacedV1 struct {
		OrderID         string         `avro:"order_id"`
		OrderNumber     string         `avro:"order_number"`
		UserID          *string        `avro:"user_id"`
		CustomerName    string         `avro:"customer_name"`
		CustomerEmail   string         `avro:"customer_email"`
		CustomerPhone   string         `avro:"customer_phone"`
		ShippingAddress OrderAddressV1 `avro:"shipping_address"`
		Items           []OrderItemV1  `avro:"items"`
		Subtotal        float64        `avro:"subtotal"`
		Total           float64        `avro:"total"`
		PaymentMethod   string         `avro:"payment_method"`
		PaymentStatus   string         `avro:"payment_status"`
		Status          string         `avro:"status"`
		CreatedAt       time.Time      `avro:"created_at"`
	}

	OrderAddressV1 struct {
		Street  string `avro:"street"`
		City    string `avro:"city"`
		Country string `avro:"country"`
	}

	OrderItemV1 struct {
		ProductID   string  `avro:"product_id"`
		ProductName string  `avro:"product_name"`
		Quantity    int     `avro:"quantity"`
		Price       float64 `avro:"price"`
	}
)

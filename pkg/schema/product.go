package schema

const ProductSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.products",
	"name": "product",
	"fields": [
		{"name": "product_id", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "brand", "type": "string"},
		{"name": "category", "type": "string"},
		{"name": "subcategory", "type": "string", "default": ""},
		{"name": "description", "type": "string", "default": ""},
		{"name": "price", "type": "double"},
		{"name": "original_price", "type": "double", "default": 0},
		{"name": "discount", "type": "int", "default": 0},
		{"name": "currency", "type": "string"},
		{"name": "rating", "type": "double"},
		{"name": "in_stock", "type": "boolean"},
		{"name": "image", "type": "string", "default": ""}
	]
}`

type ProductV1 struct {
	ProductID     string  `avro:"product_id"`
	Name          string  `avro:"name"`
	Brand         string  `avro:"brand"`
	Category      string  `avro:"category"`
	Subcategory   string  `avro:"subcategory"`
	Description   string  `avro:"description"`
	Price         float64 `avro:"price"`
	OriginalPrice float64 `avro:"original_price"`
	Discount      int     `avro:"discount"`
	Currency      string  `avro:"currency"`
	Rating        float64 `avro:"rating"`
	InStock       bool    `avro:"in_stock"`
	Image         string  `avro:"image"`
}

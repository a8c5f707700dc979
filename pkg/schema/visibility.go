package schema

const ProductVisibilitySchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.products",
	"name": "product_visibility",
	"fields": [
		{"name": "product_id", "type": "string"},
		{"name": "hidden", "type": "boolean"}
	]
}`

type ProductVisibilityV1 struct {
	ProductID string `avro:"product_id"`
	Hidden    bool   `avro:"hidden"`
}

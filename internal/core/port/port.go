package port

import (
	"context"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	runnerContextWg interface {
		Run(context.Context, context.CancelFunc, *sync.WaitGroup)
	}

	closer interface {
		Close()
	}
)

// Catalog

type ProductsReader interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	ReadProduct(ctx context.Context, productID string) (domain.Product, error)
}

type ProductsSaver interface {
	StoreProducts(context.Context, []domain.Product) error
}

type ProductsStorage interface {
	ProductsReader
	ProductsSaver
}

type VisibilityChecker interface {
	IsHidden(productID string) bool
}

type VisibilityEmitter interface {
	EmitVisibility(context.Context, domain.ProductVisibility) error
}

type VisibilityProcessor interface {
	runnerContextWg
	closer
}

// Cart and session collaborators

type CartStore interface {
	Items(ctx context.Context, userID string) ([]domain.CartItem, error)
	PutItems(ctx context.Context, userID string, items []domain.CartItem) error
	ClearCart(ctx context.Context, userID string) error
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// Checkout

type CheckoutStateStore interface {
	LoadState(ctx context.Context, userID string) (domain.CheckoutState, error)
	SaveState(ctx context.Context, st domain.CheckoutState) error
	DeleteState(ctx context.Context, userID string) error
}

type OrderCreator interface {
	CreateOrder(context.Context, domain.Order) (domain.Order, error)
}

type FallbackOrderStore interface {
	AppendOrder(ctx context.Context, userID string, o domain.Order) error
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

// Orders

type OrdersStorage interface {
	StoreOrder(context.Context, domain.Order) error
}

type OrderEventsProducer interface {
	ProduceOrderPlaced(context.Context, domain.Order) error
}

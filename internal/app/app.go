package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/memory"
	"github.com/niksmo/storefront/internal/adapter/orderapi"
	"github.com/niksmo/storefront/internal/adapter/redis"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/checkout"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/retry"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sr"
)

const (
	pingAttempts = 5
	pingDelay    = 200 * time.Millisecond
)

type serdes struct {
	order      schema.Serde
	visibility schema.Serde
	product    schema.Serde
}

type stores struct {
	products port.ProductsStorage
	orders   port.OrdersStorage
	states   port.CheckoutStateStore
	carts    port.CartStore
	fallback port.FallbackOrderStore
}

type streams struct {
	ordersProducer   *kafka.OrdersProducer
	productsConsumer *kafka.ProductsConsumer
	visibilityEmit   *kafka.VisibilityEmitter
	visibilityProc   *kafka.VisibilityProcessor
	visibilityView   *kafka.VisibilityView
}

type coreService struct {
	catalog  service.CatalogService
	cart     service.CartService
	checkout service.CheckoutService
	orders   service.OrderService
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	kgoExtra   []kgo.Opt
	sqlDB      *storage.SQLDB
	redis      *redis.Client
	serdes     serdes
	stores     stores
	streams    streams
	service    coreService
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initTLS()
	app.initStorage()
	app.initSessionStores()
	app.initStreams()
	app.initCoreService()
	app.initCatalogFeed()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initTLS() {
	const op = "App.initTLS"

	files := app.cfg.Broker.TLS
	if !app.cfg.Broker.Enabled() || !files.Enabled() {
		return
	}

	tlsConfig, err := adapter.MakeTLSConfig(files.CA, files.Cert, files.Key)
	if err != nil {
		app.fallDown(op, err)
	}
	kafka.UseTLS(tlsConfig)
	app.kgoExtra = append(app.kgoExtra, kgo.DialTLSConfig(tlsConfig))
}

func (app *App) initStorage() {
	const op = "App.initStorage"
	log := slog.With("op", op)

	if dsn := app.cfg.SQLDB; dsn != "" {
		db, err := retry.DoWithResult(app.ctx, pingRetry(), func() (storage.SQLDB, error) {
			return storage.NewSQLDB(app.ctx, dsn)
		})
		if err != nil {
			app.fallDown(op, err)
		}
		app.sqlDB = &db
		app.stores.products = storage.NewProductsRepository(db)
		app.stores.orders = storage.NewOrdersRepository(db)
		log.Info("using sql storage")
		return
	}

	if path := app.cfg.Catalog.SeedFile; path != "" {
		seed, err := storage.LoadSeedCatalog(path)
		if err != nil {
			app.fallDown(op, err)
		}
		app.stores.products = seed
	} else {
		app.stores.products = storage.NewSeedCatalog(nil)
	}
	app.stores.orders = memory.NewOrders()
	log.Info("using seed catalog", "file", app.cfg.Catalog.SeedFile)
}

func (app *App) initSessionStores() {
	const op = "App.initSessionStores"
	log := slog.With("op", op)

	rcfg := app.cfg.Redis
	if rcfg.URL == "" {
		app.stores.states = memory.NewCheckoutStates()
		app.stores.carts = memory.NewCarts()
		app.stores.fallback = storage.NewFileFallbackStore(app.cfg.Checkout.FallbackFile)
		log.Info("using process memory for carts and checkouts")
		return
	}

	cl, err := retry.DoWithResult(app.ctx, pingRetry(), func() (redis.Client, error) {
		return redis.NewClient(app.ctx, redis.Config{
			URL:          rcfg.URL,
			ReadTimeout:  rcfg.ReadTimeout,
			WriteTimeout: rcfg.WriteTimeout,
			DialTimeout:  rcfg.DialTimeout,
		})
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.redis = &cl

	app.stores.states = redis.NewCheckoutStates(cl, rcfg.StateTTL)
	app.stores.carts = redis.NewCarts(cl, rcfg.CartTTL)
	if path := app.cfg.Checkout.FallbackFile; path != "" {
		app.stores.fallback = storage.NewFileFallbackStore(path)
	} else {
		app.stores.fallback = redis.NewFallbackOrders(cl)
	}
	log.Info("using redis for carts and checkouts")
}

func (app *App) initStreams() {
	const op = "App.initStreams"

	bcfg := app.cfg.Broker
	if !bcfg.Enabled() {
		slog.Info("broker is not configured, streams are disabled")
		return
	}

	app.initSerdes()

	ordersProducer, err := kafka.NewOrdersProducer(
		kafka.ProducerClientOpt(
			app.ctx, bcfg.SeedBrokers, bcfg.Topics.OrderPlaced, app.kgoExtra...,
		),
		kafka.ProducerEncoderOpt(app.serdes.order),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	emitter, err := kafka.NewVisibilityEmitter(
		bcfg.SeedBrokers, bcfg.Topics.VisibilityStream, app.serdes.visibility,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	proc, err := kafka.NewVisibilityProc(
		bcfg.SeedBrokers,
		bcfg.Topics.VisibilityStream,
		bcfg.Consumers.VisibilityGroup,
		app.serdes.visibility,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	view, err := kafka.NewVisibilityView(
		bcfg.SeedBrokers, bcfg.Consumers.VisibilityGroup,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.streams.ordersProducer = &ordersProducer
	app.streams.visibilityEmit = &emitter
	app.streams.visibilityProc = proc
	app.streams.visibilityView = view
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	bcfg := app.cfg.Broker
	srClient, err := sr.NewClient(sr.URLs(bcfg.SchemaRegistryURLs...))
	if err != nil {
		app.fallDown(op, err)
	}
	schemaCreater := schema.NewSchemaCreater(srClient)

	newSerde := func(
		fn func(context.Context, ...schema.Opt) (schema.Serde, error), topic string,
	) schema.Serde {
		s, err := fn(
			app.ctx,
			schema.SubjectOpt(topic+"-value"),
			schema.SchemaIdentifierOpt(schemaCreater),
		)
		if err != nil {
			app.fallDown(op, err)
		}
		return s
	}

	app.serdes.order = newSerde(schema.NewSerdeOrderPlacedV1, bcfg.Topics.OrderPlaced)
	app.serdes.visibility = newSerde(
		schema.NewSerdeProductVisibilityV1, bcfg.Topics.VisibilityStream,
	)
	app.serdes.product = newSerde(schema.NewSerdeProductV1, bcfg.Topics.CatalogProducts)
}

func (app *App) initCoreService() {
	var catalogOpts []service.CatalogOpt
	if app.streams.visibilityView != nil {
		catalogOpts = append(catalogOpts, service.WithVisibility(
			app.streams.visibilityView,
			app.streams.visibilityEmit,
			app.streams.visibilityProc,
		))
	}
	app.service.catalog = service.NewCatalog(
		app.stores.products, app.cfg.Catalog.PageSize, catalogOpts...,
	)

	var orderOpts []service.OrderOpt
	if app.streams.ordersProducer != nil {
		orderOpts = append(orderOpts, service.WithOrderEvents(app.streams.ordersProducer))
	}
	app.service.orders = service.NewOrders(app.stores.orders, orderOpts...)

	var orderCreator port.OrderCreator = app.service.orders
	if url := app.cfg.OrderAPI.URL; url != "" {
		orderCreator = orderapi.New(url, orderapi.WithHTTPClient(
			&http.Client{Timeout: app.cfg.OrderAPI.Timeout},
		))
	}

	app.service.cart = service.NewCart(app.stores.carts, app.stores.products)

	flow := checkout.NewFlow(
		orderCreator,
		app.stores.fallback,
		app.stores.carts,
		checkout.Config{
			DefaultCountry: app.cfg.Checkout.DefaultCountry,
			HomePath:       app.cfg.Checkout.HomePath,
			RedirectDelay:  app.cfg.Checkout.RedirectDelay,
		},
	)
	app.service.checkout = service.NewCheckout(
		app.stores.states, app.stores.carts, app.stores.fallback, flow,
	)
}

// initCatalogFeed consumes the catalog topic into the catalog service.
func (app *App) initCatalogFeed() {
	const op = "App.initCatalogFeed"

	bcfg := app.cfg.Broker
	if !bcfg.Enabled() {
		return
	}

	consumer, err := kafka.NewProductsConsumer(
		kafka.ConsumerClientOpt(
			bcfg.SeedBrokers,
			bcfg.Topics.CatalogProducts,
			bcfg.Consumers.ProductSaverGroup,
			app.kgoExtra...,
		),
		kafka.ConsumerDecoderOpt(app.serdes.product),
		kafka.ProductsConsumerSaverOpt(app.service.catalog),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.streams.productsConsumer = &consumer
}

func (app *App) initInboundAdapters() {
	router := httphandler.Router{
		Catalog:   app.service.catalog,
		Cart:      app.service.cart,
		Checkout:  app.service.checkout,
		Orders:    app.service.orders,
		LoginPath: app.cfg.Checkout.LoginPath,
	}
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTP.Addr, router.Handler(), app.cfg.HTTP.HandlerTimeout,
	)
}

func (app *App) Run(stopFn context.CancelFunc) {
	app.service.catalog.Run(app.ctx, stopFn)

	if v := app.streams.visibilityView; v != nil {
		go v.Run(app.ctx, stopFn)
	}
	if c := app.streams.productsConsumer; c != nil {
		go c.Run(app.ctx)
	}

	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)

	if c := app.streams.productsConsumer; c != nil {
		c.Close()
	}
	app.service.catalog.Close()
	if e := app.streams.visibilityEmit; e != nil {
		e.Close()
	}
	if p := app.streams.ordersProducer; p != nil {
		p.Close()
	}
	if app.redis != nil {
		app.redis.Close()
	}
	if app.sqlDB != nil {
		app.sqlDB.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

func pingRetry() retry.RetryConfig {
	return retry.RetryConfig{
		MaxAttempts: pingAttempts,
		Backoff:     retry.ExponentialBackoff(pingDelay),
	}
}

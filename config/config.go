package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	envPrefix         = "STOREFRONT"

	defaultFallbackFile = "data/orders.json"
)

type httpServer struct {
	Addr           string        `mapstructure:"addr"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type catalog struct {
	PageSize int    `mapstructure:"page_size"`
	SeedFile string `mapstructure:"seed_file"`
}

type checkout struct {
	DefaultCountry string        `mapstructure:"default_country"`
	HomePath       string        `mapstructure:"home_path"`
	LoginPath      string        `mapstructure:"login_path"`
	RedirectDelay  time.Duration `mapstructure:"redirect_delay"`
	FallbackFile   string        `mapstructure:"fallback_file"`
}

type orderAPI struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type redis struct {
	URL          string        `mapstructure:"url"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
	CartTTL      time.Duration `mapstructure:"cart_ttl"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

func (t tlsFiles) Enabled() bool {
	return t.CA != "" && t.Cert != "" && t.Key != ""
}

type topics struct {
	OrderPlaced      string `mapstructure:"order_placed"`
	CatalogProducts  string `mapstructure:"catalog_products"`
	VisibilityStream string `mapstructure:"visibility_stream"`
}

type consumers struct {
	ProductSaverGroup string `mapstructure:"product_saver_group"`
	VisibilityGroup   string `mapstructure:"visibility_group"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                tlsFiles  `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

// Enabled reports whether the kafka adapters are wired.
func (b broker) Enabled() bool {
	return len(b.SeedBrokers) != 0 && len(b.SchemaRegistryURLs) != 0
}

type Config struct {
	LogLevel slog.Level `mapstructure:"log_level"`
	HTTP     httpServer `mapstructure:"http"`
	SQLDB    string     `mapstructure:"sql_db"`
	Catalog  catalog    `mapstructure:"catalog"`
	Checkout checkout   `mapstructure:"checkout"`
	OrderAPI orderAPI   `mapstructure:"order_api"`
	Redis    redis      `mapstructure:"redis"`
	Broker   broker     `mapstructure:"broker"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.handler_timeout", 15*time.Second)
	v.SetDefault("sql_db", "")
	v.SetDefault("catalog.page_size", 12)
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("checkout.default_country", "Thailand")
	v.SetDefault("checkout.home_path", "/")
	v.SetDefault("checkout.login_path", "/login")
	v.SetDefault("checkout.redirect_delay", 3*time.Second)
	v.SetDefault("checkout.fallback_file", "")
	v.SetDefault("order_api.url", "")
	v.SetDefault("order_api.timeout", 10*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.state_ttl", 24*time.Hour)
	v.SetDefault("redis.cart_ttl", 7*24*time.Hour)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.topics.order_placed", "storefront-orders")
	v.SetDefault("broker.topics.catalog_products", "storefront-catalog-products")
	v.SetDefault("broker.topics.visibility_stream", "storefront-product-visibility")
	v.SetDefault("broker.consumers.product_saver_group", "storefront-product-saver")
	v.SetDefault("broker.consumers.visibility_group", "storefront-visibility")
}

func Load() Config {
	_ = godotenv.Load()

	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the YAML file at path, then applies STOREFRONT_* env
// overrides. A missing file leaves the defaults and env in effect.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			levelHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	// Without redis the fallback orders always go to a file.
	if cfg.Checkout.FallbackFile == "" && cfg.Redis.URL == "" {
		cfg.Checkout.FallbackFile = defaultFallbackFile
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func levelHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeFor[slog.Level]() || from.Kind() != reflect.String {
			return data, nil
		}
		var l slog.Level
		if err := l.UnmarshalText([]byte(data.(string))); err != nil {
			return nil, err
		}
		return l, nil
	}
}

func (c Config) validate() error {
	switch {
	case c.Catalog.PageSize < 1:
		return fmt.Errorf("catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	case c.OrderAPI.URL != "" && c.HTTP.HandlerTimeout <= c.OrderAPI.Timeout:
		return fmt.Errorf(
			"http.handler_timeout (%s) must exceed order_api.timeout (%s)",
			c.HTTP.HandlerTimeout, c.OrderAPI.Timeout,
		)
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q
	HTTPAddr=%q
	HandlerTimeout=%s
	SQLDB=%t

	Catalog:
	PageSize=%d
	SeedFile=%q

	Checkout:
	DefaultCountry=%q
	HomePath=%q
	LoginPath=%q
	RedirectDelay=%s
	FallbackFile=%q
	OrderAPI=%q
	OrderAPITimeout=%s

	Redis:
	Enabled=%t
	StateTTL=%s
	CartTTL=%s

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		OrderPlaced=%q
		CatalogProducts=%q
		VisibilityStream=%q
	Consumers:
		ProductSaverGroup=%q
		VisibilityGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.HTTP.Addr,
		c.HTTP.HandlerTimeout,
		c.SQLDB != "",
		c.Catalog.PageSize,
		c.Catalog.SeedFile,
		c.Checkout.DefaultCountry,
		c.Checkout.HomePath,
		c.Checkout.LoginPath,
		c.Checkout.RedirectDelay,
		c.Checkout.FallbackFile,
		c.OrderAPI.URL,
		c.OrderAPI.Timeout,
		c.Redis.URL != "",
		c.Redis.StateTTL,
		c.Redis.CartTTL,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.Topics.OrderPlaced,
		c.Broker.Topics.CatalogProducts,
		c.Broker.Topics.VisibilityStream,
		c.Broker.Consumers.ProductSaverGroup,
		c.Broker.Consumers.VisibilityGroup,
	)
}

package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

func (po *producerOpts) apply(opts ...ProducerOpt) error {
	for _, opt := range opts {
		if err := opt(po); err != nil {
			return err
		}
	}
	if po.cl == nil || po.encoder == nil {
		return ErrTooFewOpts
	}
	return nil
}

// ProducerClientOpt connects a producing client to the seed brokers. Extra
// options are appended to the defaults, e.g. [kgo.DialTLSConfig].
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, extra ...kgo.Opt,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kgoOpts := append([]kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
			kgo.AllowAutoTopicCreation(),
		}, extra...)

		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerTestClientOpt sets an already created client.
func ProducerTestClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// UseTLS makes every goka emitter, processor and view created afterwards
// connect over TLS.
func UseTLS(cfg *tls.Config) {
	gc := goka.DefaultConfig()
	gc.Net.TLS.Enable = true
	gc.Net.TLS.Config = cfg
	goka.ReplaceGlobalConfig(gc)
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func orderToSchemaV1(v domain.Order) (s schema.OrderPlacedV1) {
	s.OrderID = v.ID
	s.OrderNumber = v.OrderNumber
	s.UserID = v.UserID
	s.CustomerName = v.CustomerName
	s.CustomerEmail = v.CustomerEmail
	s.CustomerPhone = v.CustomerPhone
	s.ShippingAddress.Street = v.ShippingAddress.Street
	s.ShippingAddress.City = v.ShippingAddress.City
	s.ShippingAddress.Country = v.ShippingAddress.Country
	s.Subtotal = v.Subtotal
	s.Total = v.Total
	s.PaymentMethod = string(v.PaymentMethod)
	s.PaymentStatus = v.PaymentStatus
	s.Status = v.Status
	s.CreatedAt = v.CreatedAt

	s.Items = make([]schema.OrderItemV1, len(v.Items))
	for i, it := range v.Items {
		s.Items[i].ProductID = it.ProductID
		s.Items[i].ProductName = it.ProductName
		s.Items[i].Quantity = it.Quantity
		s.Items[i].Price = it.Price
	}
	return
}

func visibilityToSchemaV1(
	v domain.ProductVisibility,
) schema.ProductVisibilityV1 {
	return schema.ProductVisibilityV1{
		ProductID: v.ProductID,
		Hidden:    v.Hidden,
	}
}

func schemaV1ToProduct(s schema.ProductV1) domain.Product {
	return domain.Product{
		ProductID:     s.ProductID,
		Name:          s.Name,
		Brand:         s.Brand,
		Category:      s.Category,
		Subcategory:   s.Subcategory,
		Description:   s.Description,
		Price:         s.Price,
		OriginalPrice: s.OriginalPrice,
		Discount:      s.Discount,
		Currency:      s.Currency,
		Rating:        s.Rating,
		InStock:       s.InStock,
		Image:         s.Image,
	}
}

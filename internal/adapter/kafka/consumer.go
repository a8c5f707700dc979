package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/retry"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	seedBrokers []string, topic, group string, extra ...kgo.Opt,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kgoOpts := append([]kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		}, extra...)

		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerTestClientOpt sets an already created client.
func ConsumerTestClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ProductsConsumerSaverOpt(ps port.ProductsSaver) ConsumerOpt {
	return func(co *consumerOpts) error {
		if ps == nil {
			return errors.New("products saver is nil")
		}
		co.productsSaver = ps
		return nil
	}
}

type consumerOpts struct {
	cl            ConsumerClient
	decoder       Decoder
	productsSaver port.ProductsSaver
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	if co.cl == nil || co.decoder == nil || co.productsSaver == nil {
		return ErrTooFewOpts
	}
	return nil
}

const (
	processAttempts = 3
	backoffBase     = 250 * time.Millisecond
	backoffMax      = 10 * time.Second
)

type fetchHandler interface {
	processFetches(context.Context, kgo.Fetches) error
}

// A consumer polls the group, hands every batch to the handler and commits
// the polled offsets afterwards.
//
// A batch the handler keeps failing on is logged and committed, so one bad
// batch can not stall the partition.
type consumer struct {
	opPrefix string
	handler  fetchHandler
	cl       ConsumerClient
	backoff  retry.Backoff
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	var failures int
	for ctx.Err() == nil {
		err := c.consume(ctx)
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, context.Canceled), errors.Is(err, kgo.ErrClientClosed):
			log.Info("stopped")
			return
		default:
			failures++
			log.Error("failed to consume", "err", err, "failures", failures)
			if !sleep(ctx, c.backoff(failures)) {
				return
			}
		}
	}
	log.Info("stopped")
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"
	log := slog.With("op", makeOp(c.opPrefix, op))

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	if err := fetchErrs(fetches); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	if fetches.Empty() {
		return nil
	}

	err := retry.Do(ctx, retry.RetryConfig{
		MaxAttempts: processAttempts,
		Backoff:     c.backoff,
		ShouldRetry: func(error) bool { return ctx.Err() == nil },
	}, func() error {
		return c.handler.processFetches(ctx, fetches)
	})
	if err != nil {
		if ctx.Err() != nil {
			return opErr(ctx.Err(), c.opPrefix, op)
		}
		log.Error(
			"skipping batch",
			"nRecords", fetches.NumRecords(),
			"err", err,
		)
	}

	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

func fetchErrs(fetches kgo.Fetches) error {
	var errs []error
	fetches.EachError(func(t string, p int32, err error) {
		errs = append(errs, fmt.Errorf("topic %q partition %d: %w", t, p, err))
	})
	return errors.Join(errs...)
}

// sleep reports false when ctx is done first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// A ProductsConsumer consumes the catalog feed and stores the products.
type ProductsConsumer struct {
	opPrefix string
	consumer consumer
	saver    port.ProductsSaver
	decoder  Decoder
}

func NewProductsConsumer(opts ...ConsumerOpt) (pc ProductsConsumer, err error) {
	const op = "NewProductsConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return pc, opErr(err, op)
	}

	opPrefix := "ProductsConsumer"

	pc.opPrefix = opPrefix
	pc.saver = options.productsSaver
	pc.decoder = options.decoder

	pc.consumer = consumer{
		opPrefix: opPrefix,
		handler:  pc,
		cl:       options.cl,
		backoff:  retry.Capped(retry.ExponentialBackoff(backoffBase), backoffMax),
	}

	return pc, nil
}

func (c ProductsConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c ProductsConsumer) Close() {
	c.consumer.close()
}

func (c ProductsConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"

	values := c.toDomain(fetches)
	if len(values) == 0 {
		return nil
	}

	if err := c.saver.StoreProducts(ctx, values); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c ProductsConsumer) toDomain(
	fetches kgo.Fetches,
) (vs []domain.Product) {
	const op = "toDomain"
	log := slog.With("op", makeOp(c.opPrefix, op))

	fetches.EachRecord(func(r *kgo.Record) {
		v, err := c.decodeRecValue(r)
		if err != nil {
			log.Error(
				"failed to decode value",
				"err", opErr(err, c.opPrefix, op),
			)
			return
		}
		vs = append(vs, v)
	})
	return vs
}

func (c ProductsConsumer) decodeRecValue(
	r *kgo.Record,
) (domain.Product, error) {
	var s schema.ProductV1
	if err := c.decoder.Decode(r.Value, &s); err != nil {
		return domain.Product{}, err
	}
	p := schemaV1ToProduct(s)
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

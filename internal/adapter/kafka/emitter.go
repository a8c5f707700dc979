package kafka

import (
	"context"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.VisibilityEmitter = VisibilityEmitter{}

type gokaEmitter interface {
	EmitSync(key string, msg any) error
	Finish() error
}

// A VisibilityEmitter publishes visibility events keyed by product id.
type VisibilityEmitter struct {
	opPrefix string
	ge       gokaEmitter
}

func NewVisibilityEmitter(
	seedBrokers []string, stream string, visibilitySerde Serde,
) (VisibilityEmitter, error) {
	const op = "NewVisibilityEmitter"

	ge, err := goka.NewEmitter(
		seedBrokers,
		goka.Stream(stream),
		newVisibilityEventCodec(visibilitySerde),
	)
	if err != nil {
		return VisibilityEmitter{}, opErr(err, op)
	}
	return VisibilityEmitter{opPrefix: "VisibilityEmitter", ge: ge}, nil
}

func (e VisibilityEmitter) EmitVisibility(
	ctx context.Context, v domain.ProductVisibility,
) error {
	const op = "EmitVisibility"

	if err := ctx.Err(); err != nil {
		return opErr(err, e.opPrefix, op)
	}

	err := e.ge.EmitSync(v.ProductID, visibilityToSchemaV1(v))
	if err != nil {
		return opErr(err, e.opPrefix, op)
	}
	return nil
}

func (e VisibilityEmitter) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(e.opPrefix, op))

	log.Info("closing emitter...")
	if err := e.ge.Finish(); err != nil {
		log.Error("failed to finish gracefully", "err", err)
		return
	}
	log.Info("emitter is closed")
}

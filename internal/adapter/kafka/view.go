package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.VisibilityChecker = (*VisibilityView)(nil)

type gokaView interface {
	Run(context.Context) error
	Get(key string) (any, error)
}

// A VisibilityView reads the visibility group table.
type VisibilityView struct {
	opPrefix string
	gv       gokaView
}

func NewVisibilityView(
	seedBrokers []string, group string,
) (*VisibilityView, error) {
	const op = "NewVisibilityView"

	gv, err := goka.NewView(
		seedBrokers,
		goka.GroupTable(goka.Group(group)),
		hiddenValueCodec{},
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	return &VisibilityView{opPrefix: "VisibilityView", gv: gv}, nil
}

// Run blocks until ctx is done. A failing view stops the application.
func (v *VisibilityView) Run(ctx context.Context, stopFn context.CancelFunc) {
	const op = "Run"
	log := slog.With("op", makeOp(v.opPrefix, op))

	log.Info("running")
	if err := v.gv.Run(ctx); err != nil {
		log.Error("unexpected fail on run", "err", err)
		stopFn()
		return
	}
	log.Info("stopped")
}

// IsHidden reports false for unknown products and when the table can not
// be read.
func (v *VisibilityView) IsHidden(productID string) bool {
	const op = "IsHidden"
	log := slog.With("op", makeOp(v.opPrefix, op))

	value, err := v.gv.Get(productID)
	if err != nil {
		log.Error("failed to get view data", "err", err)
		return false
	}

	if value == nil {
		return false
	}

	hidden, ok := value.(hiddenValue)
	if !ok {
		log.Error("unexpected type of data", "type", fmt.Sprintf("%T", value))
		return false
	}
	return bool(hidden)
}

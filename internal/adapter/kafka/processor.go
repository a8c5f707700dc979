package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.VisibilityProcessor = (*VisibilityProcessor)(nil)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A visibilityEventCodec used for serde [schema.ProductVisibilityV1]
type visibilityEventCodec struct {
	serde Serde
}

func newVisibilityEventCodec(s Serde) visibilityEventCodec {
	return visibilityEventCodec{s}
}

func (c visibilityEventCodec) Encode(v any) ([]byte, error) {
	const op = "visibilityEventCodec.Encode"
	if _, ok := v.(schema.ProductVisibilityV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c visibilityEventCodec) Decode(data []byte) (any, error) {
	const op = "visibilityEventCodec.Decode"
	var s schema.ProductVisibilityV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A hiddenValue is the table value for a particular product id.
type hiddenValue bool

// A hiddenValueCodec used for serde [hiddenValue]
type hiddenValueCodec struct{}

func (hiddenValueCodec) Encode(v any) ([]byte, error) {
	const op = "hiddenValueCodec.Encode"
	hv, ok := v.(hiddenValue)
	if !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return strconv.AppendBool(nil, bool(hv)), nil
}

func (hiddenValueCodec) Decode(data []byte) (any, error) {
	const op = "hiddenValueCodec.Decode"
	hv, err := strconv.ParseBool(string(data))
	if err != nil {
		return nil, opErr(err, op)
	}
	return hiddenValue(hv), nil
}

// A VisibilityProcessor persists visibility events from the stream topic
// into the group table keyed by product id.
type VisibilityProcessor struct {
	opPrefix string
	proc     processor
}

func NewVisibilityProc(
	seedBrokers []string,
	inputStream string,
	group string,
	visibilitySerde Serde,
) (*VisibilityProcessor, error) {
	const op = "NewVisibilityProc"

	p := VisibilityProcessor{opPrefix: "VisibilityProcessor"}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			newVisibilityEventCodec(visibilitySerde),
			p.processFn,
		),
		goka.Persist(hiddenValueCodec{}),
	)

	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
	}

	return &p, nil
}

func (p *VisibilityProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *VisibilityProcessor) Close() {
	p.proc.close()
}

func (p *VisibilityProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"
	log := slog.With("op", makeOp(p.opPrefix, op))

	event, ok := msg.(schema.ProductVisibilityV1)
	if !ok {
		log.Error("unexpected message", "key", ctx.Key())
		return
	}

	ctx.SetValue(hiddenValue(event.Hidden))
	log.Info(
		"set visibility",
		"productID", event.ProductID,
		"hidden", event.Hidden,
	)
}

package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

var ErrTooFewOpts = errors.New("too few options")

// A Serde encodes values into the registry wire format (magic byte, schema
// id, avro payload) and back.
type Serde interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

type Opt func(*serdeOpts) error

type serdeOpts struct {
	subject string
	si      SchemaIdentifier
}

func (so *serdeOpts) apply(opts []Opt) error {
	for _, o := range opts {
		if err := o(so); err != nil {
			return err
		}
	}
	if so.subject == "" || so.si == nil {
		return ErrTooFewOpts
	}
	return nil
}

func SubjectOpt(subject string) Opt {
	return func(so *serdeOpts) error {
		if subject == "" {
			return errors.New("subject is empty string")
		}
		so.subject = subject
		return nil
	}
}

func SchemaIdentifierOpt(sc SchemaIdentifier) Opt {
	return func(so *serdeOpts) error {
		if sc == nil {
			return errors.New("schema identifier is nil")
		}
		so.si = sc
		return nil
	}
}

func NewSerdeProductV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde[ProductV1](ctx, "NewSerdeProductV1", ProductSchemaTextV1, opts)
}

func NewSerdeOrderPlacedV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde[OrderPlacedV1](ctx, "NewSerdeOrderPlacedV1", OrderPlacedSchemaTextV1, opts)
}

func NewSerdeProductVisibilityV1(ctx context.Context, opts ...Opt) (Serde, error) {
	return newSerde[ProductVisibilityV1](
		ctx, "NewSerdeProductVisibilityV1", ProductVisibilitySchemaTextV1, opts,
	)
}

// newSerde registers T under the id the registry assigns to schemaText.
func newSerde[T any](
	ctx context.Context, op, schemaText string, opts []Opt,
) (Serde, error) {
	var so serdeOpts
	if err := so.apply(opts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avroSchema, err := avro.Parse(schemaText)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := so.si.DetermineID(ctx, so.subject, schemaText)
	if err != nil {
		return nil, fmt.Errorf("%s: subject %q: %w", op, so.subject, err)
	}

	var s sr.Serde
	s.Register(
		id,
		new(T),
		sr.EncodeFn(AvroEncodeFn(avroSchema)),
		sr.DecodeFn(AvroDecodeFn(avroSchema)),
	)
	return &s, nil
}

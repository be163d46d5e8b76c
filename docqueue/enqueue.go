package docqueue

import (
	"context"
	"encoding/json"

	"github.com/code19m/errx"
	"github.com/samber/lo"
)

// Add inserts one pending message and returns its id.
// The payload is JSON encoded; tries starts at 0 and the message becomes
// claimable once the delay elapses.
func (q *Queue) Add(ctx context.Context, payload any, opts ...AddOption) (string, error) {
	ids, err := q.AddBatch(ctx, []any{payload}, opts...)
	if err != nil {
		return "", errx.Wrap(err)
	}
	return ids[0], nil
}

// AddBatch inserts the payloads as independent pending messages, in order,
// and returns their ids in the same order. An empty batch is rejected.
func (q *Queue) AddBatch(ctx context.Context, payloads []any, opts ...AddOption) ([]string, error) {
	if len(payloads) == 0 {
		return nil, newInvalidArgument("batch must contain at least one payload", errx.D{"queue": q.Name()})
	}

	cfg := addConfig{delay: q.opts.delay}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.delay < 0 {
		return nil, newInvalidArgument("delay must not be negative", errx.D{
			"queue": q.Name(),
			"delay": cfg.delay.String(),
		})
	}

	encoded, err := encodePayloads(payloads)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	visible := q.now().Add(cfg.delay)
	docs := lo.Map(encoded, func(p json.RawMessage, _ int) Document {
		return Document{
			Payload: p,
			Visible: visible,
			Tries:   0,
		}
	})

	ids, err := q.store.InsertMany(ctx, docs)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}

	return ids, nil
}

func encodePayloads(payloads []any) ([]json.RawMessage, error) {
	encoded := make([]json.RawMessage, 0, len(payloads))
	for i, p := range payloads {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, errx.Wrap(err,
				errx.WithCode(CodeInvalidArgument),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"payload_index": i}),
			)
		}
		encoded = append(encoded, b)
	}
	return encoded, nil
}

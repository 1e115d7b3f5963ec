package surveillance

import (
	"context"
	"errors"
	"fmt"
)

// MultiSink delivers to every sink in order. All sinks are attempted; the
// joined error reports each one that failed.
type MultiSink[F any] []Sink[F]

func (m MultiSink[F]) Deliver(ctx context.Context, alert Alert, frame F) error {
	var errs []error
	for i, sink := range m {
		if err := sink.Deliver(ctx, alert, frame); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

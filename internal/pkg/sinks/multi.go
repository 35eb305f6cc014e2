package sinks

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

// Multi fans readings out to several sinks. A failing sink does not stop
// delivery to the others; the first error is returned.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, r Reading) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			logging.Logger(ctx).WithError(err).Warnf("publishing reading for %s", r.Alias)
			if first == nil {
				first = errors.Wrapf(err, "publishing reading for %s", r.Alias)
			}
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

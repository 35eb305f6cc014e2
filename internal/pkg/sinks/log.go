package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

// Log writes readings to the process log at info level.
type Log struct{}

func NewLog() Log {
	return Log{}
}

func (Log) Publish(ctx context.Context, r Reading) error {
	fields := logrus.Fields{
		"alias":    r.Alias,
		"model":    r.Model,
		"category": r.Category.String(),
		"online":   r.Online,
	}
	if r.RelayOn != nil {
		fields["relay_on"] = *r.RelayOn
	}
	if r.LightOn != nil {
		fields["light_on"] = *r.LightOn
	}
	if r.Bright != nil {
		fields["brightness"] = *r.Bright
	}
	if r.Usage != nil {
		fields["power_w"] = r.Usage.Power
		fields["total_kwh"] = r.Usage.Total
	}

	logging.Logger(ctx).WithFields(fields).Info("device reading")
	return nil
}

func (Log) Close() error {
	return nil
}

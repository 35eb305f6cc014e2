package sinks

import (
	"context"
	"time"

	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

// Reading is one poll of one device.
type Reading struct {
	Alias     string           `json:"alias"`
	DeviceID  string           `json:"device_id"`
	Model     string           `json:"model"`
	Category  kasa.Category    `json:"category"`
	Timestamp time.Time        `json:"timestamp"`
	Online    bool             `json:"online"`
	RSSI      int              `json:"rssi,omitempty"`
	RelayOn   *bool            `json:"relay_on,omitempty"`
	LightOn   *bool            `json:"light_on,omitempty"`
	Bright    *int             `json:"brightness,omitempty"`
	Usage     *kasa.PowerUsage `json:"power,omitempty"`
}

// Sink receives device readings.
type Sink interface {
	Publish(ctx context.Context, r Reading) error
	Close() error
}

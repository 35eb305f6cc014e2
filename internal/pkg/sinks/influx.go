package sinks

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const (
	measurementDevice = "kasa_device"
	measurementEnergy = "kasa_energy"
)

// InfluxConfig describes the InfluxDB v2 target.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Influx writes readings as points, one kasa_device point per reading and
// a kasa_energy point when the reading carries a power measurement.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInflux(cfg InfluxConfig) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	return &Influx{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func points(r Reading) []*write.Point {
	tags := map[string]string{
		"alias":     r.Alias,
		"device_id": r.DeviceID,
		"model":     r.Model,
		"category":  r.Category.String(),
	}

	fields := map[string]interface{}{
		"online": r.Online,
	}
	if r.RSSI != 0 {
		fields["rssi"] = r.RSSI
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

	pts := []*write.Point{
		write.NewPoint(measurementDevice, tags, fields, r.Timestamp),
	}

	if r.Usage != nil {
		pts = append(pts, write.NewPoint(measurementEnergy, tags, map[string]interface{}{
			"power_watts": r.Usage.Power,
			"voltage":     r.Usage.Voltage,
			"current":     r.Usage.Current,
			"total_kwh":   r.Usage.Total,
		}, r.Timestamp))
	}

	return pts
}

func (i *Influx) Publish(ctx context.Context, r Reading) error {
	if err := i.writeAPI.WritePoint(ctx, points(r)...); err != nil {
		return errors.Wrapf(err, "writing points for %s", r.Alias)
	}
	return nil
}

func (i *Influx) Close() error {
	i.client.Close()
	return nil
}

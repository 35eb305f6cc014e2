package kasa

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// HS100 is a switched plug.
type HS100 struct {
	*BaseDevice
}

func newHS100(s *Session, info DeviceInfo) *HS100 {
	return &HS100{BaseDevice: newBaseDevice(s, info, CategoryBasicPlug)}
}

func (p *HS100) SetRelayState(ctx context.Context, on bool) error {
	_, err := p.Execute(ctx, NewSetRelayStateCommand(on))
	return err
}

func (p *HS100) PowerOn(ctx context.Context) error {
	return p.SetRelayState(ctx, true)
}

func (p *HS100) PowerOff(ctx context.Context) error {
	return p.SetRelayState(ctx, false)
}

// RelayState reads the relay from sysinfo; true is on.
func (p *HS100) RelayState(ctx context.Context) (bool, error) {
	si, err := p.SysInfo(ctx)
	if err != nil {
		return false, err
	}
	return si.RelayState == 1, nil
}

// Toggle flips the relay and returns the new state. It costs two relays and
// is not atomic with respect to other controllers of the plug.
func (p *HS100) Toggle(ctx context.Context) (bool, error) {
	on, err := p.RelayState(ctx)
	if err != nil {
		return false, err
	}

	if err := p.SetRelayState(ctx, !on); err != nil {
		return on, err
	}
	return !on, nil
}

// HS110 is a plug with energy metering.
type HS110 struct {
	*HS100
}

func newHS110(s *Session, info DeviceInfo) *HS110 {
	p := &HS110{HS100: newHS100(s, info)}
	p.category = CategoryMeteringPlug
	return p
}

// PowerUsage is a realtime emeter reading in SI units.
type PowerUsage struct {
	Current float64 `json:"current"`
	Voltage float64 `json:"voltage"`
	Power   float64 `json:"power"`
	Total   float64 `json:"total"`
}

// Older firmware reports A/V/W/kWh, newer mA/mV/mW/Wh.
type rawRealtime struct {
	Current   *float64 `json:"current"`
	Voltage   *float64 `json:"voltage"`
	Power     *float64 `json:"power"`
	Total     *float64 `json:"total"`
	CurrentMA *float64 `json:"current_ma"`
	VoltageMV *float64 `json:"voltage_mv"`
	PowerMW   *float64 `json:"power_mw"`
	TotalWH   *float64 `json:"total_wh"`
}

func pick(v *float64, milli *float64) float64 {
	if v != nil {
		return *v
	}
	if milli != nil {
		return *milli / 1000
	}
	return 0
}

func (p *HS110) PowerUsage(ctx context.Context) (*PowerUsage, error) {
	raw, err := p.Execute(ctx, NewGetRealtimeCommand())
	if err != nil {
		return nil, err
	}

	var rt rawRealtime
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding emeter reading: %s", err)
	}

	return &PowerUsage{
		Current: pick(rt.Current, rt.CurrentMA),
		Voltage: pick(rt.Voltage, rt.VoltageMV),
		Power:   pick(rt.Power, rt.PowerMW),
		Total:   pick(rt.Total, rt.TotalWH),
	}, nil
}

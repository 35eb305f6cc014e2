package kasa

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// LightState is a bulb's lighting state. While the bulb is off the last on
// state is reported in DftOnState.
type LightState struct {
	OnOff      int         `json:"on_off"`
	Mode       string      `json:"mode,omitempty"`
	Hue        int         `json:"hue"`
	Saturation int         `json:"saturation"`
	ColorTemp  int         `json:"color_temp"`
	Brightness int         `json:"brightness"`
	DftOnState *LightState `json:"dft_on_state,omitempty"`
	ErrCode    int         `json:"err_code,omitempty"`
}

func (s LightState) On() bool {
	return s.OnOff == 1
}

// LB100 is a dimmable white bulb. LB110 and LB120 share this handle.
type LB100 struct {
	*BaseDevice
}

func newLB100(s *Session, info DeviceInfo) *LB100 {
	return &LB100{BaseDevice: newBaseDevice(s, info, CategoryBulb)}
}

// TransitionLightState applies a state change and returns the resulting
// light state.
func (b *LB100) TransitionLightState(ctx context.Context, change LightStateChange) (*LightState, error) {
	raw, err := b.Execute(ctx, NewTransitionLightStateCommand(change))
	if err != nil {
		return nil, err
	}
	return decodeLightState(raw)
}

func (b *LB100) LightState(ctx context.Context) (*LightState, error) {
	raw, err := b.Execute(ctx, NewGetLightStateCommand())
	if err != nil {
		return nil, err
	}
	return decodeLightState(raw)
}

func (b *LB100) PowerOn(ctx context.Context) error {
	on := true
	_, err := b.TransitionLightState(ctx, LightStateChange{On: &on})
	return err
}

func (b *LB100) PowerOff(ctx context.Context) error {
	on := false
	_, err := b.TransitionLightState(ctx, LightStateChange{On: &on})
	return err
}

// SetBrightness turns the bulb on at a brightness of 0-100 percent.
func (b *LB100) SetBrightness(ctx context.Context, brightness int) error {
	if brightness < 0 || brightness > 100 {
		return errors.Errorf("brightness %d out of range 0-100", brightness)
	}

	on := true
	_, err := b.TransitionLightState(ctx, LightStateChange{On: &on, Brightness: &brightness})
	return err
}

func decodeLightState(raw json.RawMessage) (*LightState, error) {
	var ls LightState
	if err := json.Unmarshal(raw, &ls); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding light state: %s", err)
	}
	return &ls, nil
}

// LB130 is a colour bulb.
type LB130 struct {
	*LB100
}

func newLB130(s *Session, info DeviceInfo) *LB130 {
	b := &LB130{LB100: newLB100(s, info)}
	b.category = CategoryExtendedBulb
	return b
}

// SetColour sets hue (0-360), saturation and brightness (0-100). Colour
// temperature is cleared so the hue takes effect.
func (b *LB130) SetColour(ctx context.Context, hue, saturation, brightness int) error {
	if hue < 0 || hue > 360 {
		return errors.Errorf("hue %d out of range 0-360", hue)
	}
	if saturation < 0 || saturation > 100 {
		return errors.Errorf("saturation %d out of range 0-100", saturation)
	}
	if brightness < 0 || brightness > 100 {
		return errors.Errorf("brightness %d out of range 0-100", brightness)
	}

	on := true
	colorTemp := 0
	_, err := b.TransitionLightState(ctx, LightStateChange{
		On:         &on,
		Hue:        &hue,
		Saturation: &saturation,
		Brightness: &brightness,
		ColorTemp:  &colorTemp,
	})
	return err
}

// SetColourTemp sets a white colour temperature, 2500-9000K on the LB130.
func (b *LB130) SetColourTemp(ctx context.Context, kelvin int) error {
	if kelvin < 2500 || kelvin > 9000 {
		return errors.Errorf("colour temperature %dK out of range 2500-9000", kelvin)
	}

	on := true
	_, err := b.TransitionLightState(ctx, LightStateChange{On: &on, ColorTemp: &kelvin})
	return err
}

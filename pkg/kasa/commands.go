package kasa

// Vendor commands are relayed as {"<module>":{"<method>":<params>}} and the
// device answers with the same tree, each method reply carrying err_code.

const (
	moduleSystem   = "system"
	moduleEmeter   = "emeter"
	moduleLighting = "smartlife.iot.smartbulb.lightingservice"
)

type command struct {
	module string
	method string
}

func newCommand(module, method string) command {
	return command{
		module: module,
		method: method,
	}
}

func (c command) names() (string, string) {
	return c.module, c.method
}

// Command is one vendor module method with its parameters.
type Command interface {
	names() (module string, method string)
}

// tree wraps a command in its module/method envelope.
func tree(c Command) map[string]map[string]interface{} {
	module, method := c.names()
	return map[string]map[string]interface{}{
		module: {method: c},
	}
}

type getSysInfoCommand struct {
	command
}

func NewGetSysInfoCommand() Command {
	return getSysInfoCommand{
		command: newCommand(moduleSystem, "get_sysinfo"),
	}
}

type setRelayStateCommand struct {
	command
	State int `json:"state"`
}

func NewSetRelayStateCommand(on bool) Command {
	return setRelayStateCommand{
		command: newCommand(moduleSystem, "set_relay_state"),
		State:   boolToInt(on),
	}
}

type getRealtimeCommand struct {
	command
}

func NewGetRealtimeCommand() Command {
	return getRealtimeCommand{
		command: newCommand(moduleEmeter, "get_realtime"),
	}
}

type getLightStateCommand struct {
	command
}

func NewGetLightStateCommand() Command {
	return getLightStateCommand{
		command: newCommand(moduleLighting, "get_light_state"),
	}
}

// LightStateChange is a requested bulb state. Nil fields are left unchanged
// by the bulb.
type LightStateChange struct {
	On               *bool
	Brightness       *int
	Hue              *int
	Saturation       *int
	ColorTemp        *int
	TransitionPeriod int
}

type transitionLightStateCommand struct {
	command
	IgnoreDefault    int  `json:"ignore_default"`
	OnOff            *int `json:"on_off,omitempty"`
	TransitionPeriod int  `json:"transition_period"`
	Brightness       *int `json:"brightness,omitempty"`
	Hue              *int `json:"hue,omitempty"`
	Saturation       *int `json:"saturation,omitempty"`
	ColorTemp        *int `json:"color_temp,omitempty"`
}

func NewTransitionLightStateCommand(change LightStateChange) Command {
	c := transitionLightStateCommand{
		command:          newCommand(moduleLighting, "transition_light_state"),
		IgnoreDefault:    1,
		TransitionPeriod: change.TransitionPeriod,
		Brightness:       change.Brightness,
		Hue:              change.Hue,
		Saturation:       change.Saturation,
		ColorTemp:        change.ColorTemp,
	}

	if change.On != nil {
		v := boolToInt(*change.On)
		c.OnOff = &v
	}

	return c
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package kasa

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// BaseDevice is the generic handle: raw relay plus sysinfo. The typed
// variants embed it.
type BaseDevice struct {
	session  *Session
	info     DeviceInfo
	category Category
}

func newBaseDevice(s *Session, info DeviceInfo, category Category) *BaseDevice {
	return &BaseDevice{
		session:  s,
		info:     info,
		category: category,
	}
}

func (d *BaseDevice) Info() DeviceInfo {
	return d.info
}

func (d *BaseDevice) Category() Category {
	return d.category
}

func (d *BaseDevice) Alias() string {
	return d.info.Alias
}

func (d *BaseDevice) DeviceID() string {
	return d.info.DeviceID
}

// Passthrough relays any vendor command tree to the device through the cloud
// and returns the device's reply as JSON. Device level err_code values inside
// the reply are not inspected.
func (d *BaseDevice) Passthrough(ctx context.Context, command interface{}) (json.RawMessage, error) {
	if command == nil {
		return nil, errors.Wrap(ErrMissingParameter, "command")
	}

	return d.session.passthrough(ctx, d.info, command)
}

// methodReply is the error part of every vendor method reply.
type methodReply struct {
	ErrCode int    `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// Execute relays one command and returns the reply of its method, failing
// with *DeviceError when the device reports a non-zero err_code.
func (d *BaseDevice) Execute(ctx context.Context, c Command) (json.RawMessage, error) {
	data, err := d.Passthrough(ctx, tree(c))
	if err != nil {
		return nil, err
	}

	module, method := c.names()

	var reply map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding %s.%s reply: %s", module, method, err)
	}

	raw, ok := reply[module][method]
	if !ok {
		// unsupported modules answer {"<module>":{"err_code":..,"err_msg":..}}
		var moduleReply map[string]methodReply
		if err := json.Unmarshal(data, &moduleReply); err == nil && moduleReply[module].ErrCode != 0 {
			return nil, &DeviceError{
				Module:  module,
				Method:  method,
				Code:    moduleReply[module].ErrCode,
				Message: moduleReply[module].ErrMsg,
			}
		}
		return nil, errors.Wrapf(ErrMalformedResponse, "no %s.%s in device reply", module, method)
	}

	var mr methodReply
	if err := json.Unmarshal(raw, &mr); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding %s.%s reply: %s", module, method, err)
	}

	if mr.ErrCode != 0 {
		return nil, &DeviceError{
			Module:  module,
			Method:  method,
			Code:    mr.ErrCode,
			Message: mr.ErrMsg,
		}
	}

	return raw, nil
}

// SysInfo is the reply to system.get_sysinfo. Plugs fill the relay fields,
// bulbs fill LightState.
type SysInfo struct {
	Alias      string `json:"alias"`
	Model      string `json:"model"`
	DeviceID   string `json:"deviceId"`
	SWVersion  string `json:"sw_ver"`
	HWVersion  string `json:"hw_ver"`
	Type       string `json:"type,omitempty"`
	MicType    string `json:"mic_type,omitempty"`
	MAC        string `json:"mac,omitempty"`
	MicMAC     string `json:"mic_mac,omitempty"`
	RSSI       int    `json:"rssi"`
	Feature    string `json:"feature,omitempty"`
	RelayState int    `json:"relay_state"`
	OnTime     int    `json:"on_time"`
	LEDOff     int    `json:"led_off"`
	Updating   int    `json:"updating"`

	IsDimmable          int         `json:"is_dimmable"`
	IsColor             int         `json:"is_color"`
	IsVariableColorTemp int         `json:"is_variable_color_temp"`
	LightState          *LightState `json:"light_state,omitempty"`
}

// HasEmeter reports whether the device advertises energy metering.
func (s SysInfo) HasEmeter() bool {
	return strings.Contains(s.Feature, "ENE")
}

func (d *BaseDevice) SysInfo(ctx context.Context) (*SysInfo, error) {
	raw, err := d.Execute(ctx, NewGetSysInfoCommand())
	if err != nil {
		return nil, err
	}

	var si SysInfo
	if err := json.Unmarshal(raw, &si); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decoding sysinfo: %s", err)
	}

	return &si, nil
}

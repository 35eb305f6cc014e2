package kasa

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category is the resolved variant of a device handle.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryBasicPlug
	CategoryMeteringPlug
	CategoryBulb
	CategoryExtendedBulb
)

var categoryNames = []string{
	"generic",
	"basic-plug",
	"metering-plug",
	"bulb",
	"extended-bulb",
}

func (c Category) String() string {
	if int(c) < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("unknown (id: %d)", c)
	}

	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}

	return errors.Errorf("unknown device category %q", text)
}

// Resolve decides the handle variant for a device list entry. The checks are
// plain substring matches: the type is compared case-insensitively against
// "bulb" and "plug", and the model is searched for "130" (bulbs) or "110"
// (plugs), so "LB130X" counts as an LB130.
//
// This is the only place the type/model mapping is made.
func Resolve(info DeviceInfo) Category {
	deviceType := strings.ToLower(info.DeviceType)
	model := info.DeviceModel

	switch {
	case strings.Contains(deviceType, "bulb"):
		if strings.Contains(model, "130") {
			return CategoryExtendedBulb
		}
		return CategoryBulb
	case strings.Contains(deviceType, "plug"):
		if strings.Contains(model, "110") {
			return CategoryMeteringPlug
		}
		return CategoryBasicPlug
	}

	return CategoryGeneric
}

// FindDevice looks an alias up in the cached catalog. DeviceList must have
// been called first; an empty catalog simply finds nothing.
func (s *Session) FindDevice(alias string) (DeviceInfo, error) {
	info, ok := s.Catalog().Find(alias)
	if !ok {
		return DeviceInfo{}, errors.Wrapf(ErrUnknownAlias, "alias %q", alias)
	}

	return info, nil
}

// NewDevice returns a handle for an alias (string) or a device list entry
// (DeviceInfo or *DeviceInfo), with the variant chosen by Resolve.
func (s *Session) NewDevice(nameOrInfo interface{}) (Device, error) {
	var info DeviceInfo

	switch v := nameOrInfo.(type) {
	case nil:
		return nil, errors.Wrap(ErrMissingParameter, "nameOrInfo")
	case string:
		if v == "" {
			return nil, errors.Wrap(ErrMissingParameter, "nameOrInfo")
		}
		found, err := s.FindDevice(v)
		if err != nil {
			return nil, err
		}
		info = found
	case DeviceInfo:
		info = v
	case *DeviceInfo:
		if v == nil {
			return nil, errors.Wrap(ErrMissingParameter, "nameOrInfo")
		}
		info = *v
	default:
		return nil, errors.Wrapf(ErrInvalidParameterType, "nameOrInfo is %T; expected string or DeviceInfo", nameOrInfo)
	}

	return s.newHandle(Resolve(info), info), nil
}

// newHandle constructs the concrete handle for a category.
func (s *Session) newHandle(category Category, info DeviceInfo) Device {
	switch category {
	case CategoryBasicPlug:
		return newHS100(s, info)
	case CategoryMeteringPlug:
		return newHS110(s, info)
	case CategoryBulb:
		return newLB100(s, info)
	case CategoryExtendedBulb:
		return newLB130(s, info)
	}

	return newBaseDevice(s, info, CategoryGeneric)
}

// GetHS100 returns the alias as a basic plug, whatever its listed type.
func (s *Session) GetHS100(alias string) (*HS100, error) {
	info, err := s.FindDevice(alias)
	if err != nil {
		return nil, err
	}
	return newHS100(s, info), nil
}

// GetHS110 returns the alias as a metering plug.
func (s *Session) GetHS110(alias string) (*HS110, error) {
	info, err := s.FindDevice(alias)
	if err != nil {
		return nil, err
	}
	return newHS110(s, info), nil
}

// GetLB100 returns the alias as a dimmable bulb.
func (s *Session) GetLB100(alias string) (*LB100, error) {
	info, err := s.FindDevice(alias)
	if err != nil {
		return nil, err
	}
	return newLB100(s, info), nil
}

// GetLB110 is GetLB100; the LB110 has no handle of its own.
func (s *Session) GetLB110(alias string) (*LB100, error) {
	return s.GetLB100(alias)
}

// GetLB120 is GetLB100; the LB120's tunable white is not modelled.
func (s *Session) GetLB120(alias string) (*LB100, error) {
	return s.GetLB100(alias)
}

// GetLB130 returns the alias as a colour bulb.
func (s *Session) GetLB130(alias string) (*LB130, error) {
	info, err := s.FindDevice(alias)
	if err != nil {
		return nil, err
	}
	return newLB130(s, info), nil
}

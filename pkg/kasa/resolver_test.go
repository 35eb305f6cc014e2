package kasa

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		deviceType string
		model      string
		want       Category
	}{
		{"IOT.SMARTPLUGSWITCH", "HS110(US)", CategoryMeteringPlug},
		{"IOT.SMARTPLUGSWITCH", "HS100(US)", CategoryBasicPlug},
		{"IOT.SMARTPLUGSWITCH", "HS105(EU)", CategoryBasicPlug},
		{"iot.smartplugswitch", "HS110(UK)", CategoryMeteringPlug},
		{"IOT.SMARTBULB", "LB130(US)", CategoryExtendedBulb},
		{"IOT.SMARTBULB", "LB130X", CategoryExtendedBulb},
		{"IOT.SMARTBULB", "LB100(EU)", CategoryBulb},
		{"IOT.SMARTBULB", "LB120(US)", CategoryBulb},
		{"IOT.SMARTBULB", "KL110(US)", CategoryBulb},
		{"IOT.SMARTPLUGSWITCH", "LB130(US)", CategoryBasicPlug},
		{"IOT.UNKNOWN", "HS110(US)", CategoryGeneric},
		{"IOT.IPCAMERA", "KC100", CategoryGeneric},
		{"", "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.deviceType+"/"+tt.model, func(t *testing.T) {
			got := Resolve(DeviceInfo{DeviceType: tt.deviceType, DeviceModel: tt.model})
			if got != tt.want {
				t.Errorf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCategory_String(t *testing.T) {
	if got := CategoryMeteringPlug.String(); got != "metering-plug" {
		t.Errorf("String() = %q, want metering-plug", got)
	}
	if got := Category(99).String(); got != "unknown (id: 99)" {
		t.Errorf("String() = %q", got)
	}

	var c Category
	if err := c.UnmarshalText([]byte("extended-bulb")); err != nil || c != CategoryExtendedBulb {
		t.Errorf("UnmarshalText() = %v, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("toaster")); err == nil {
		t.Error("expected error for unknown category")
	}
}

func catalogSession(t *testing.T, devices ...DeviceInfo) *Session {
	t.Helper()

	stub := newStub()
	s := loggedIn(t, stub)
	stub.script(deviceListReply(devices...))
	if _, err := s.DeviceList(context.Background()); err != nil {
		t.Fatalf("device list: %v", err)
	}
	return s
}

var testCatalog = []DeviceInfo{
	{Alias: "plug1", DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS110(US)", DeviceID: "d1"},
	{Alias: "plug2", DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS100(US)", DeviceID: "d2"},
	{Alias: "bulb", DeviceType: "IOT.SMARTBULB", DeviceModel: "LB130(US)", DeviceID: "d3"},
	{Alias: "plug1", DeviceType: "IOT.SMARTBULB", DeviceModel: "LB100(US)", DeviceID: "d4"},
}

func TestSession_FindDevice(t *testing.T) {
	s := catalogSession(t, testCatalog...)

	t.Run("exact match", func(t *testing.T) {
		info, err := s.FindDevice("plug2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info != testCatalog[1] {
			t.Errorf("FindDevice() = %+v, want %+v", info, testCatalog[1])
		}
	})

	t.Run("first duplicate wins", func(t *testing.T) {
		info, err := s.FindDevice("plug1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.DeviceID != "d1" {
			t.Errorf("DeviceID = %q, want d1", info.DeviceID)
		}
	})

	t.Run("alias match is case sensitive", func(t *testing.T) {
		if _, err := s.FindDevice("PLUG2"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
	})

	t.Run("missing alias", func(t *testing.T) {
		if _, err := s.FindDevice("missing"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		empty := loggedIn(t, newStub())
		if _, err := empty.FindDevice("plug1"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
	})
}

func TestSession_NewDevice(t *testing.T) {
	s := catalogSession(t, testCatalog...)

	t.Run("from descriptors", func(t *testing.T) {
		tests := []struct {
			info DeviceInfo
			want Category
		}{
			{DeviceInfo{DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS110(US)"}, CategoryMeteringPlug},
			{DeviceInfo{DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS100(US)"}, CategoryBasicPlug},
			{DeviceInfo{DeviceType: "IOT.SMARTBULB", DeviceModel: "LB130(US)"}, CategoryExtendedBulb},
			{DeviceInfo{DeviceType: "IOT.SMARTBULB", DeviceModel: "LB100(US)"}, CategoryBulb},
			{DeviceInfo{DeviceType: "IOT.UNKNOWN", DeviceModel: "X1"}, CategoryGeneric},
		}

		for _, tt := range tests {
			d, err := s.NewDevice(tt.info)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Category() != tt.want {
				t.Errorf("%s: Category() = %s, want %s", tt.info.DeviceModel, d.Category(), tt.want)
			}
			if d.Info() != tt.info {
				t.Errorf("Info() = %+v, want %+v", d.Info(), tt.info)
			}
		}
	})

	t.Run("concrete types", func(t *testing.T) {
		d, _ := s.NewDevice(DeviceInfo{DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS110(US)"})
		if _, ok := d.(*HS110); !ok {
			t.Errorf("got %T, want *HS110", d)
		}
		d, _ = s.NewDevice(&DeviceInfo{DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS100(US)"})
		if _, ok := d.(*HS100); !ok {
			t.Errorf("got %T, want *HS100", d)
		}
		d, _ = s.NewDevice(DeviceInfo{DeviceType: "IOT.SMARTBULB", DeviceModel: "LB130(US)"})
		if _, ok := d.(*LB130); !ok {
			t.Errorf("got %T, want *LB130", d)
		}
		d, _ = s.NewDevice(DeviceInfo{DeviceType: "IOT.SMARTBULB", DeviceModel: "LB120(US)"})
		if _, ok := d.(*LB100); !ok {
			t.Errorf("got %T, want *LB100", d)
		}
		d, _ = s.NewDevice(DeviceInfo{DeviceType: "IOT.UNKNOWN"})
		if _, ok := d.(*BaseDevice); !ok {
			t.Errorf("got %T, want *BaseDevice", d)
		}
	})

	t.Run("from alias", func(t *testing.T) {
		d, err := s.NewDevice("bulb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Category() != CategoryExtendedBulb {
			t.Errorf("Category() = %s, want %s", d.Category(), CategoryExtendedBulb)
		}
		if d.Info().DeviceID != "d3" {
			t.Errorf("DeviceID = %q, want d3", d.Info().DeviceID)
		}
	})

	t.Run("unknown alias", func(t *testing.T) {
		if _, err := s.NewDevice("nope"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		var nilInfo *DeviceInfo
		for _, arg := range []interface{}{nil, "", nilInfo} {
			if _, err := s.NewDevice(arg); !errors.Is(err, ErrMissingParameter) {
				t.Errorf("NewDevice(%#v) error = %v, want ErrMissingParameter", arg, err)
			}
		}
	})

	t.Run("invalid parameter type", func(t *testing.T) {
		for _, arg := range []interface{}{42, true, []string{"plug1"}} {
			if _, err := s.NewDevice(arg); !errors.Is(err, ErrInvalidParameterType) {
				t.Errorf("NewDevice(%#v) error = %v, want ErrInvalidParameterType", arg, err)
			}
		}
	})
}

func TestSession_NamedGetters(t *testing.T) {
	s := catalogSession(t, testCatalog...)

	t.Run("getters bypass type sniffing", func(t *testing.T) {
		// plug2 is listed as an HS100 but GetHS110 builds a metering plug anyway
		p, err := s.GetHS110("plug2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Category() != CategoryMeteringPlug {
			t.Errorf("Category() = %s, want %s", p.Category(), CategoryMeteringPlug)
		}

		b, err := s.GetLB130("plug2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Category() != CategoryExtendedBulb {
			t.Errorf("Category() = %s, want %s", b.Category(), CategoryExtendedBulb)
		}

		h, err := s.GetHS100("bulb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.Category() != CategoryBasicPlug {
			t.Errorf("Category() = %s, want %s", h.Category(), CategoryBasicPlug)
		}
	})

	t.Run("LB110 and LB120 are LB100", func(t *testing.T) {
		b100, err := s.GetLB100("bulb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b110, err := s.GetLB110("bulb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b120, err := s.GetLB120("bulb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if b110.Category() != b100.Category() || b120.Category() != b100.Category() {
			t.Errorf("categories %s, %s, %s differ", b100.Category(), b110.Category(), b120.Category())
		}
		if b110.Info() != b100.Info() || b120.Info() != b100.Info() {
			t.Error("descriptors differ")
		}
	})

	t.Run("unknown alias", func(t *testing.T) {
		if _, err := s.GetLB120("missing"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
		if _, err := s.GetHS100("missing"); !errors.Is(err, ErrUnknownAlias) {
			t.Errorf("error = %v, want ErrUnknownAlias", err)
		}
	})
}

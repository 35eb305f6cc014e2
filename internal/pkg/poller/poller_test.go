package poller

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jake-scott/kasa-cloud/internal/pkg/sinks"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
	"github.com/jake-scott/kasa-cloud/pkg/kasa/kasatest"
)

type recordingSink struct {
	mu  sync.Mutex
	got []sinks.Reading
	err error
}

func (s *recordingSink) Publish(ctx context.Context, r sinks.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) readings() []sinks.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinks.Reading(nil), s.got...)
}

func testCloud() *kasatest.Cloud {
	cloud := kasatest.NewCloud(
		kasa.DeviceInfo{Alias: "Kettle", DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS100(UK)", DeviceID: "plug-1", Status: 1},
		kasa.DeviceInfo{Alias: "Heater", DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS110(UK)", DeviceID: "plug-2", Status: 1},
		kasa.DeviceInfo{Alias: "Hall", DeviceType: "IOT.SMARTBULB", DeviceModel: "LB130(EU)", DeviceID: "bulb-1", Status: 1},
		kasa.DeviceInfo{Alias: "Garage", DeviceType: "IOT.SMARTPLUGSWITCH", DeviceModel: "HS100(UK)", DeviceID: "plug-3", Status: 0},
	)
	cloud.Reply("plug-1", "system.get_sysinfo", `{"err_code":0,"relay_state":1,"rssi":-50}`)
	cloud.Reply("plug-2", "system.get_sysinfo", `{"err_code":0,"relay_state":0,"rssi":-60}`)
	cloud.Reply("plug-2", "emeter.get_realtime", `{"err_code":0,"power_mw":1500,"voltage_mv":240000,"current_ma":6,"total_wh":12}`)
	cloud.Reply("bulb-1", "system.get_sysinfo", `{"err_code":0,"rssi":-40,"light_state":{"on_off":0,"dft_on_state":{"brightness":30}}}`)
	return cloud
}

func byAlias(readings []sinks.Reading) map[string]sinks.Reading {
	m := make(map[string]sinks.Reading, len(readings))
	for _, r := range readings {
		m[r.Alias] = r
	}
	return m
}

func TestPollOnce(t *testing.T) {
	ctx := context.Background()
	cloud := testCloud()

	session, err := cloud.Session(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	sink := &recordingSink{}
	p := New(session, sink).WithConcurrency(2)

	readings, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(readings))
	}
	if len(sink.readings()) != 4 {
		t.Errorf("sink got %d readings, want 4", len(sink.readings()))
	}

	got := byAlias(readings)

	kettle := got["Kettle"]
	if kettle.Category != kasa.CategoryBasicPlug || kettle.RelayOn == nil || !*kettle.RelayOn || kettle.RSSI != -50 {
		t.Errorf("Kettle = %+v", kettle)
	}

	heater := got["Heater"]
	if heater.Category != kasa.CategoryMeteringPlug || heater.RelayOn == nil || *heater.RelayOn {
		t.Errorf("Heater = %+v", heater)
	}
	if heater.Usage == nil || heater.Usage.Power != 1.5 || heater.Usage.Voltage != 240 {
		t.Errorf("Heater usage = %+v", heater.Usage)
	}

	hall := got["Hall"]
	if hall.Category != kasa.CategoryExtendedBulb || hall.LightOn == nil || *hall.LightOn {
		t.Errorf("Hall = %+v", hall)
	}
	if hall.Bright == nil || *hall.Bright != 30 {
		t.Errorf("Hall brightness = %v", hall.Bright)
	}

	garage := got["Garage"]
	if garage.Online || garage.RelayOn != nil {
		t.Errorf("Garage = %+v", garage)
	}

	var relayed []string
	for _, c := range cloud.Calls() {
		if c.Method == "passthrough" {
			relayed = append(relayed, c.DeviceID)
		}
	}
	sort.Strings(relayed)
	want := []string{"bulb-1", "plug-1", "plug-2", "plug-2"}
	if len(relayed) != len(want) {
		t.Fatalf("relayed to %v, want %v", relayed, want)
	}
	for i := range want {
		if relayed[i] != want[i] {
			t.Errorf("relayed to %v, want %v", relayed, want)
			break
		}
	}
}

func TestPollOnce_DeviceErrorSkipped(t *testing.T) {
	ctx := context.Background()
	cloud := testCloud()
	cloud.Reply("plug-1", "system.get_sysinfo", `{"err_code":-1,"err_msg":"busy"}`)

	session, err := cloud.Session(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	readings, err := New(session, &recordingSink{}).PollOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := byAlias(readings)["Kettle"]; ok {
		t.Error("failed device should not produce a reading")
	}
	if len(readings) != 3 {
		t.Errorf("got %d readings, want 3", len(readings))
	}
}

func TestPollOnce_SinkErrorNotFatal(t *testing.T) {
	ctx := context.Background()
	session, err := testCloud().Session(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	readings, err := New(session, &recordingSink{err: errors.New("broker down")}).PollOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 4 {
		t.Errorf("got %d readings, want 4", len(readings))
	}
}

func TestPollOnce_ListError(t *testing.T) {
	ctx := context.Background()
	cloud := testCloud()
	session, err := cloud.Session(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	cloud.Token = "rotated"

	_, err = New(session, &recordingSink{}).PollOnce(ctx)
	if code, ok := kasa.IsCloudError(err); !ok || code != kasatest.CodeTokenExpired {
		t.Errorf("error = %v, want cloud error %d", err, kasatest.CodeTokenExpired)
	}
}

func TestRun(t *testing.T) {
	session, err := testCloud().Session(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	sink := &recordingSink{}
	p := New(session, sink).WithInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(sink.readings()) < 8 {
		select {
		case <-deadline:
			t.Fatalf("only %d readings after 5s", len(sink.readings()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

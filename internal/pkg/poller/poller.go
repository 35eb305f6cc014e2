package poller

import (
	"context"
	"sync"
	"time"

	"github.com/korovkin/limiter"
	"github.com/pkg/errors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
	"github.com/jake-scott/kasa-cloud/internal/pkg/sinks"
	"github.com/jake-scott/kasa-cloud/pkg/kasa"
)

const (
	defaultInterval    = time.Minute
	defaultConcurrency = 4
)

// Poller refreshes the device list of one session and relays status
// queries to every device, handing the readings to a sink.
type Poller struct {
	session     *kasa.Session
	sink        sinks.Sink
	interval    time.Duration
	concurrency int
	now         func() time.Time
}

func New(session *kasa.Session, sink sinks.Sink) *Poller {
	return &Poller{
		session:     session,
		sink:        sink,
		interval:    defaultInterval,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

func (p *Poller) WithInterval(d time.Duration) *Poller {
	np := *p
	if d > 0 {
		np.interval = d
	}
	return &np
}

// WithConcurrency caps the number of relays in flight at once.
func (p *Poller) WithConcurrency(n int) *Poller {
	np := *p
	if n > 0 {
		np.concurrency = n
	}
	return &np
}

// Run polls immediately and then every interval until ctx is cancelled.
// Failed polls are logged and retried at the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logging.Logger(ctx).Info("poll-loop: shutting down")
				return nil
			}
			logging.Logger(ctx).WithError(err).Errorf("poll-loop: polling devices, retrying in %s", p.interval)
		}

		select {
		case <-ctx.Done():
			logging.Logger(ctx).Info("poll-loop: shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce refreshes the catalog and collects one reading per device. Errors
// for single devices are logged and skipped; only a failed catalog refresh
// fails the poll.
func (p *Poller) PollOnce(ctx context.Context) ([]sinks.Reading, error) {
	devices, err := p.session.DeviceList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "refreshing device list")
	}

	logging.Logger(ctx).Debugf("poll: %d devices", len(devices))

	var mu sync.Mutex
	readings := make([]sinks.Reading, 0, len(devices))

	limit := limiter.NewConcurrencyLimiter(p.concurrency)
	for _, info := range devices {
		info := info
		limit.ExecuteWithTicket(func(ticket int) {
			devCtx := logging.WithDevice(ctx, info.Alias)

			r, err := p.read(devCtx, info)
			if err != nil {
				logging.Logger(devCtx).WithError(err).Warnf("poll-goroutine %d: reading device", ticket)
				return
			}

			if err := p.sink.Publish(devCtx, r); err != nil {
				logging.Logger(devCtx).WithError(err).Warnf("poll-goroutine %d: publishing reading", ticket)
			}

			mu.Lock()
			readings = append(readings, r)
			mu.Unlock()
		})
	}
	limit.Wait()

	return readings, nil
}

// read relays the status queries appropriate to the device's category.
// Devices the cloud reports offline are not relayed to.
func (p *Poller) read(ctx context.Context, info kasa.DeviceInfo) (sinks.Reading, error) {
	d, err := p.session.NewDevice(info)
	if err != nil {
		return sinks.Reading{}, err
	}

	r := sinks.Reading{
		Alias:     info.Alias,
		DeviceID:  info.DeviceID,
		Model:     info.DeviceModel,
		Category:  d.Category(),
		Timestamp: p.now(),
		Online:    info.Online(),
	}

	if !r.Online {
		return r, nil
	}

	si, err := d.SysInfo(ctx)
	if err != nil {
		return r, errors.Wrap(err, "fetching sysinfo")
	}
	r.RSSI = si.RSSI

	switch dev := d.(type) {
	case *kasa.HS110:
		on := si.RelayState == 1
		r.RelayOn = &on

		usage, err := dev.PowerUsage(ctx)
		if err != nil {
			return r, errors.Wrap(err, "fetching power usage")
		}
		r.Usage = usage
	case *kasa.HS100:
		on := si.RelayState == 1
		r.RelayOn = &on
	case *kasa.LB100, *kasa.LB130:
		if si.LightState != nil {
			on := si.LightState.On()
			brightness := si.LightState.Brightness
			if !on && si.LightState.DftOnState != nil {
				brightness = si.LightState.DftOnState.Brightness
			}
			r.LightOn = &on
			r.Bright = &brightness
		}
	}

	return r, nil
}

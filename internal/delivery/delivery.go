// Package delivery takes SIM card delivery requests: a reference phone and a
// drop-off point.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/state"
)

const timestampLayout = "2006-01-02T15:04:05"

// UnknownLocation is the address for coordinates outside every known city
const UnknownLocation = "Unknown location"

// Status is the request lifecycle
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the published state. Delivery is the last saved request and
// survives Reset.
type Snapshot struct {
	Status   Status
	Message  string // Set with StatusError
	Delivery *domain.SimDelivery
	attempt  uint64
}

// City is a named bounding box used for reverse geocoding and presets
type City struct {
	Name           string
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether the point lies in the box, edges included
func (c City) Contains(lat, lon float64) bool {
	return lat >= c.MinLat && lat <= c.MaxLat && lon >= c.MinLon && lon <= c.MaxLon
}

// Center is the preset drop-off point for the city
func (c City) Center() (lat, lon float64) {
	return (c.MinLat + c.MaxLat) / 2, (c.MinLon + c.MaxLon) / 2
}

// Cities are the supported delivery areas
var Cities = []City{
	{Name: "Cochabamba, Bolivia", MinLat: -17.4, MaxLat: -17.3, MinLon: -66.2, MaxLon: -66.1},
	{Name: "La Paz, Bolivia", MinLat: -16.6, MaxLat: -16.4, MinLon: -68.2, MaxLon: -68.0},
	{Name: "Santa Cruz, Bolivia", MinLat: -17.9, MaxLat: -17.7, MinLon: -63.2, MaxLon: -63.0},
}

// ReverseGeocode names the city containing the point
func ReverseGeocode(lat, lon float64) string {
	for _, c := range Cities {
		if c.Contains(lat, lon) {
			return c.Name
		}
	}
	return UnknownLocation
}

// ValidatePhone accepts Bolivian numbers: at least 8 characters once
// everything but digits and '+' is dropped, and either a 591 country prefix
// or a bare 8-9 digit local number.
func ValidatePhone(phone string) bool {
	clean := CleanPhone(phone)
	if len(clean) < 8 {
		return false
	}
	return strings.HasPrefix(clean, "+591") ||
		strings.HasPrefix(clean, "591") ||
		len(clean) <= 9
}

// CleanPhone drops every character that is not a digit or '+'
func CleanPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, phone)
}

// FormatCoordinate renders a coordinate with six decimals
func FormatCoordinate(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// Option configures a ViewModel
type Option func(*ViewModel)

// WithClock overrides the time source for request timestamps
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

// WithLatency sets the simulated confirmation delay
func WithLatency(d time.Duration) Option {
	return func(vm *ViewModel) { vm.latency = d }
}

// ViewModel owns the delivery form state
type ViewModel struct {
	repo    domain.DeliveryRepository
	logger  *slog.Logger
	now     func() time.Time
	latency time.Duration

	state   *state.Store[Snapshot]
	attempt atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // Guards closed and wg.Add against Close
	closed bool
}

func NewViewModel(repo domain.DeliveryRepository, logger *slog.Logger, opts ...Option) *ViewModel {
	if logger == nil {
		logger = slog.Default()
	}
	vm := &ViewModel{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		latency: 1500 * time.Millisecond,
		state:   state.New(Snapshot{}, nil),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
	return vm
}

func (vm *ViewModel) Current() Snapshot { return vm.state.Load() }

func (vm *ViewModel) Subscribe() (<-chan Snapshot, func()) { return vm.state.Subscribe() }

// Save records a delivery request. The phone is checked up front; an invalid
// one publishes StatusError without contacting the repository.
func (vm *ViewModel) Save(phone string, lat, lon float64) {
	n := vm.attempt.Add(1)
	if !ValidatePhone(phone) {
		vm.publish(n, func(cur Snapshot) Snapshot {
			cur.Status = StatusError
			cur.Message = fmt.Sprintf("%s: %q", domain.ErrInvalidPhone, phone)
			return cur
		})
		return
	}
	vm.publish(n, func(cur Snapshot) Snapshot {
		cur.Status = StatusLoading
		cur.Message = ""
		return cur
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		vm.save(n, phone, lat, lon)
	}()
}

func (vm *ViewModel) save(n uint64, phone string, lat, lon float64) {
	if vm.latency > 0 {
		select {
		case <-time.After(vm.latency):
		case <-vm.ctx.Done():
			return
		}
	}

	d := domain.SimDelivery{
		ID:             uuid.NewString(),
		ReferencePhone: CleanPhone(phone),
		Latitude:       lat,
		Longitude:      lon,
		Address:        ReverseGeocode(lat, lon),
		Timestamp:      vm.now().Format(timestampLayout),
	}

	if err := vm.repo.SaveDelivery(vm.ctx, d); err != nil {
		vm.logger.Error("failed to save delivery", "error", err)
		vm.publish(n, func(cur Snapshot) Snapshot {
			cur.Status = StatusError
			cur.Message = fmt.Sprintf("error saving delivery: %s", err)
			return cur
		})
		return
	}

	vm.logger.Info("delivery saved", "id", d.ID, "address", d.Address)
	vm.publish(n, func(cur Snapshot) Snapshot {
		cur.Status = StatusSuccess
		cur.Message = ""
		cur.Delivery = &d
		return cur
	})
}

// Reset returns to Idle; a pending Save still persists but no longer publishes
func (vm *ViewModel) Reset() {
	n := vm.attempt.Add(1)
	vm.publish(n, func(cur Snapshot) Snapshot {
		cur.Status = StatusIdle
		cur.Message = ""
		return cur
	})
}

// publish applies fn unless a later Save or Reset has already published
func (vm *ViewModel) publish(n uint64, fn func(Snapshot) Snapshot) {
	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.attempt > n {
			return cur, false
		}
		next := fn(cur)
		next.attempt = n
		return next, true
	})
}

// Wait blocks until background work has finished
func (vm *ViewModel) Wait() {
	vm.wg.Wait()
}

func (vm *ViewModel) Close() {
	vm.mu.Lock()
	vm.closed = true
	vm.cancel()
	vm.mu.Unlock()
	vm.wg.Wait()
}

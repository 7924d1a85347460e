// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// Edge monitoring over a multiplexed interrupt wait.

//go:build linux

package buttonpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// handle is one monitored pin's registration in the wait set.
type handle struct {
	pin  int
	file *os.File
	fd   int
}

// waiter is the blocking multi-way wait over the pin handles. It is a
// narrow seam over epoll so the loop can be driven by a scripted
// implementation in tests.
type waiter interface {
	add(fd int) error
	wait(timeout time.Duration) ([]int, error)
	close() error
}

type epollWaiter struct {
	fd int
}

func newEpollWaiter() (*epollWaiter, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create epoll: %w", err)
	}
	return &epollWaiter{fd: fd}, nil
}

func (w *epollWaiter) add(fd int) error {
	// Value-change interrupts surface as an exceptional condition on
	// the sysfs value file.
	event := unix.EpollEvent{Events: unix.EPOLLPRI | unix.EPOLLERR, Fd: int32(fd)}
	return unix.EpollCtl(w.fd, unix.EPOLL_CTL_ADD, fd, &event)
}

func (w *epollWaiter) wait(timeout time.Duration) ([]int, error) {
	events := make([]unix.EpollEvent, MaxPins)
	n, err := unix.EpollWait(w.fd, events, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("wait for interrupts: %w", err)
	}
	ready := make([]int, 0, n)
	for _, event := range events[:n] {
		ready = append(ready, int(event.Fd))
	}
	return ready, nil
}

func (w *epollWaiter) close() error {
	return unix.Close(w.fd)
}

// Monitor owns the monitored pins from acquisition to release and runs
// the loop that turns raw interrupts into emitted events.
type Monitor struct {
	cfg      Config
	sysfs    *Sysfs
	log      *slog.Logger
	now      func() time.Time
	w        waiter
	emitter  *Emitter
	deb      *debouncer
	handles  []*handle // in monitored-set order
	exported []int     // pins exported by this Monitor, for release

	closeOnce sync.Once
	closeErr  error
}

// Option adjusts a Monitor at construction.
type Option func(*Monitor)

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

// WithSysfs points the Monitor at an alternative sysfs tree.
func WithSysfs(s *Sysfs) Option {
	return func(m *Monitor) { m.sysfs = s }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func withWaiter(w waiter) Option {
	return func(m *Monitor) { m.w = w }
}

// New acquires every configured pin and prepares the wait set. On any
// failure the pins already acquired by this attempt are released
// before returning.
func New(cfg Config, sink io.Writer, opts ...Option) (*Monitor, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	m := &Monitor{
		cfg:     cfg,
		sysfs:   &Sysfs{},
		log:     slog.Default(),
		now:     time.Now,
		emitter: NewEmitter(sink, cfg.Edge),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.w == nil {
		w, err := newEpollWaiter()
		if err != nil {
			return nil, err
		}
		m.w = w
	}
	m.deb = newDebouncer(cfg.BounceTime, m.now())
	if err := m.acquire(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Monitor) acquire() error {
	for _, pin := range m.cfg.Pins {
		if !m.cfg.NoExport {
			if err := m.sysfs.Export(pin); err != nil {
				return fmt.Errorf("export pin %d: %w", pin, err)
			}
			m.exported = append(m.exported, pin)
			if err := m.sysfs.SetDirection(pin, "in"); err != nil {
				return fmt.Errorf("set direction on pin %d: %w", pin, err)
			}
			// Always trigger on both edges; a switch actuation bounces
			// through both regardless of the reporting policy.
			if err := m.sysfs.SetEdge(pin, EdgeBoth); err != nil {
				return fmt.Errorf("set edge on pin %d: %w", pin, err)
			}
		}
		file, err := m.sysfs.OpenValue(pin)
		if err != nil {
			return fmt.Errorf("open value of pin %d: %w", pin, err)
		}
		h := &handle{pin: pin, file: file, fd: int(file.Fd())}
		m.handles = append(m.handles, h)
		if err := unix.SetNonblock(h.fd, true); err != nil {
			return fmt.Errorf("set pin %d nonblocking: %w", pin, err)
		}
		if err := m.w.add(h.fd); err != nil {
			return fmt.Errorf("register pin %d: %w", pin, err)
		}
	}
	return nil
}

// Close releases every acquired pin and closes the wait set. It is
// safe to call from any termination path; the release happens exactly
// once.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		if m.w != nil {
			errs = append(errs, m.w.close())
		}
		for _, h := range m.handles {
			errs = append(errs, h.file.Close())
		}
		for _, pin := range m.exported {
			if err := m.sysfs.Unexport(pin); err != nil {
				errs = append(errs, fmt.Errorf("unexport pin %d: %w", pin, err))
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

// Run drives the event loop until ctx is cancelled or the sink fails.
// Cancellation is observed at the wait boundary, so the latency of a
// clean shutdown is bounded by the wait timeout.
//
// The loop is single-threaded and cooperative: signalled pins are
// sampled, debounced and emitted inline, one at a time, in
// monitored-set order.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Debug("monitoring",
		"pins", m.cfg.Pins,
		"edge", string(m.cfg.Edge),
		"bounce", m.cfg.BounceTime)
	for {
		if ctx.Err() != nil {
			m.log.Debug("monitor stopping")
			return nil
		}
		ready, err := m.w.wait(m.cfg.WaitTimeout)
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			continue
		}
		if err := m.dispatch(ready); err != nil {
			return err
		}
	}
}

// dispatch processes one wake of the wait set.
func (m *Monitor) dispatch(ready []int) error {
	signalled := make(map[int]bool, len(ready))
	for _, fd := range ready {
		signalled[fd] = true
	}
	now := m.now()
	for _, h := range m.handles {
		if signalled[h.fd] {
			// The notification itself is what matters; the bytes
			// backing it are not.
			drain(h.file)
		}
	}
	if m.deb.skewed(now) {
		// The clock has been adjusted underneath us, probably by time
		// sync completing. Nothing in this cycle can be timed against
		// the old baseline.
		m.log.Debug("clock discontinuity, resetting baseline")
		m.deb.rebase(now)
		return nil
	}
	for _, h := range m.handles {
		if !signalled[h.fd] {
			continue
		}
		if err := m.process(h, now); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) process(h *handle, now time.Time) error {
	if !m.deb.accept(h.pin, now) {
		m.log.Debug("bounce suppressed", "pin", h.pin)
		return nil
	}
	// The sysfs state can lag the interrupt slightly, so give it a
	// moment to settle before sampling.
	time.Sleep(m.cfg.SettleTime)
	level, err := m.sysfs.ReadLevel(h.pin)
	if err != nil {
		// No determinable state, so drop this event.
		m.log.Debug("unreadable pin state", "pin", h.pin, "err", err)
		return nil
	}
	if !m.cfg.Edge.Reports(level) {
		return nil
	}
	if err := m.emitter.Emit(h.pin, level); err != nil {
		return fmt.Errorf("write event for pin %d: %w", h.pin, err)
	}
	return nil
}

func drain(file *os.File) {
	// Sysfs value reads are positional; seek back so later reads see
	// fresh state.
	buf := make([]byte, 64)
	file.Seek(0, io.SeekStart)
	file.Read(buf)
}

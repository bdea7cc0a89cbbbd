package media

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/utils"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateLive       State = "live"
	StateFailed     State = "failed"
	StateReleased   State = "released"
)

// Status is what the UI layer sees. Device failures are reported here and
// through Acquire's error, never to the session state machine.
type Status struct {
	State      State
	ResourceID string
	Attempts   int
	Err        error
}

var ErrManagerClosed = errors.New("media manager closed")

type Options struct {
	MaxAttempts int
	RetryBase   time.Duration
	SinkWait    time.Duration
	SinkPoll    time.Duration
	Constraints Constraints

	Logger   *logrus.Entry
	OnStatus func(Status)
	// OnRetry is called before sleeping after failed attempt n.
	OnRetry func(attempt int, delay time.Duration)
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBase <= 0 {
		o.RetryBase = time.Second
	}
	if o.SinkWait <= 0 {
		o.SinkWait = 3 * time.Second
	}
	if o.SinkPoll <= 0 {
		o.SinkPoll = 100 * time.Millisecond
	}
	if o.Constraints == (Constraints{}) {
		o.Constraints = DefaultConstraints()
	}
	if o.Logger == nil {
		o.Logger = logger.For(nil, "media")
	}
	return o
}

// Manager keeps at most one live Resource. Replacing a resource releases the old
// one before the new acquisition starts, so a failed replacement never leaks.
type Manager struct {
	device Device
	opts   Options

	mu      sync.Mutex
	current *Resource
	locate  SinkLocator
	status  Status
	cancel  context.CancelFunc
	closed  bool
}

func NewManager(device Device, opts Options) *Manager {
	return &Manager{
		device: device,
		opts:   opts.withDefaults(),
		status: Status{State: StateIdle},
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) Current() *Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	cb := m.opts.OnStatus
	m.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// linearBackoff waits n*base after the nth failed attempt.
func linearBackoff(base time.Duration, onRetry func(int, time.Duration)) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt := atomic.AddInt64(&n, 1)
		d := time.Duration(attempt) * base
		if onRetry != nil {
			onRetry(int(attempt), d)
		}
		return d, false
	})
}

// Acquire opens a fresh capture resource, retrying up to MaxAttempts times with
// linearly increasing delays. Exhaustion yields a DEVICE_UNAVAILABLE error; an
// explicit user retry is simply another Acquire call.
func (m *Manager) Acquire(ctx context.Context) (*Resource, error) {
	const op = "MediaManager.Acquire"

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "manager closed", ErrManagerClosed)
	}
	if m.cancel != nil {
		m.cancel()
	}
	actx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	old := m.current
	m.current = nil
	m.mu.Unlock()
	defer cancel()

	if old != nil {
		old.release()
	}

	m.setStatus(Status{State: StateRequesting})

	attempts := 0
	var stream Stream
	backoff := retry.WithMaxRetries(uint64(m.opts.MaxAttempts-1), linearBackoff(m.opts.RetryBase, m.opts.OnRetry))
	err := retry.Do(actx, backoff, func(ctx context.Context) error {
		attempts++
		s, err := m.device.Open(ctx, m.opts.Constraints)
		if err != nil {
			m.opts.Logger.WithError(err).WithField("attempt", attempts).Warn("camera acquisition failed")
			return retry.RetryableError(err)
		}
		stream = s
		return nil
	})

	if err == nil && actx.Err() != nil {
		// superseded or closed while the device was opening
		stopStream(stream)
		err = actx.Err()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.setStatus(Status{State: StateIdle, Attempts: attempts, Err: err})
			return nil, err
		}
		derr := utils.DeviceUnavailable(op, err)
		m.setStatus(Status{State: StateFailed, Attempts: attempts, Err: derr})
		return nil, derr
	}

	res := newResource(stream)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		res.release()
		return nil, utils.E(utils.CodeConflict, op, "manager closed", ErrManagerClosed)
	}
	if err := actx.Err(); err != nil {
		// a newer Acquire took over after the device opened
		m.mu.Unlock()
		res.release()
		return nil, err
	}
	m.current = res
	m.mu.Unlock()

	m.opts.Logger.WithFields(logrus.Fields{"resource_id": res.ID(), "attempts": attempts}).Info("camera live")
	m.setStatus(Status{State: StateLive, ResourceID: res.ID(), Attempts: attempts})
	return res, nil
}

// Validate checks the current resource and transparently re-acquires it when it
// is missing or a track has ended. A previously bound sink is re-bound.
func (m *Manager) Validate(ctx context.Context) (*Resource, error) {
	m.mu.Lock()
	res := m.current
	locate := m.locate
	m.mu.Unlock()

	if res != nil && res.Live() {
		return res, nil
	}
	if res != nil {
		m.opts.Logger.WithField("resource_id", res.ID()).Warn("capture track ended, re-acquiring")
	}

	fresh, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if locate != nil {
		if err := m.Attach(ctx, fresh, locate); err != nil {
			return fresh, err
		}
	}
	return fresh, nil
}

// Attach binds res to the sink returned by locate, polling every SinkPoll until
// SinkWait elapses. If res is bound to a different sink (the view re-mounted),
// it is unbound from the old one first.
func (m *Manager) Attach(ctx context.Context, res *Resource, locate SinkLocator) error {
	const op = "MediaManager.Attach"

	if res == nil || locate == nil {
		return utils.E(utils.CodeInvalidArgument, op, "resource and sink locator are required", nil)
	}
	if res.Released() {
		return utils.E(utils.CodeConflict, op, "resource already released", nil)
	}

	m.mu.Lock()
	m.locate = locate
	m.mu.Unlock()

	sink, err := waitForSink(ctx, locate, m.opts.SinkWait, m.opts.SinkPoll)
	if err != nil {
		return utils.E(utils.CodeTimeout, op, "render sink not available", err)
	}
	if err := res.bind(sink); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to bind sink", err)
	}
	return nil
}

var errSinkTimeout = errors.New("sink wait timed out")

func waitForSink(ctx context.Context, locate SinkLocator, wait, poll time.Duration) (Sink, error) {
	if s := locate(); s != nil {
		return s, nil
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errSinkTimeout
		case <-tick.C:
			if s := locate(); s != nil {
				return s, nil
			}
		}
	}
}

// Release stops every track of res and unbinds it. Releasing twice is a no-op.
func (m *Manager) Release(res *Resource) {
	if res == nil {
		return
	}
	m.mu.Lock()
	wasCurrent := m.current == res
	if wasCurrent {
		m.current = nil
	}
	m.mu.Unlock()

	if res.release() {
		m.opts.Logger.WithField("resource_id", res.ID()).Info("camera released")
	}
	if wasCurrent {
		m.setStatus(Status{State: StateReleased, ResourceID: res.ID()})
	}
}

// Close cancels any in-flight acquisition and releases the current resource.
// Used on unmount; later Acquire calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	res := m.current
	m.mu.Unlock()

	m.Release(res)
}

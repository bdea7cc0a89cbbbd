package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/models"
)

// DefaultKey is the single slot a client keeps; one active rehearsal per client.
const DefaultKey = "current"

type Options struct {
	Key      string
	Debounce time.Duration
	Logger   *logrus.Entry
	Now      func() time.Time
}

// Manager coalesces bursts of snapshots into one write (latest wins). Clear
// cancels anything still pending so a stale write can never land after it.
type Manager struct {
	store Store
	opts  Options

	mu      sync.Mutex
	pending *models.Snapshot
	timer   *time.Timer
	gen     uint64

	// serializes store writes against Clear
	wmu sync.Mutex
}

func NewManager(store Store, opts Options) *Manager {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = logger.For(nil, "persistence")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{store: store, opts: opts}
}

// Snapshot schedules snap for writing. With no debounce it is written at once.
func (m *Manager) Snapshot(snap models.Snapshot) {
	snap.Version = models.SnapshotVersion
	snap.LastUpdated = m.opts.Now().UTC()
	cp := cloneSnapshot(snap)

	m.mu.Lock()
	m.pending = &cp
	gen := m.gen
	if m.opts.Debounce <= 0 {
		m.mu.Unlock()
		m.write(gen)
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.opts.Debounce, func() { m.write(gen) })
	}
	m.mu.Unlock()
}

// Flush writes any pending snapshot immediately. Used on page hide.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	return m.writeCtx(ctx, gen)
}

func (m *Manager) write(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.writeCtx(ctx, gen); err != nil {
		m.opts.Logger.WithError(err).Warn("snapshot write failed")
	}
}

func (m *Manager) writeCtx(ctx context.Context, gen uint64) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.pending == nil {
		m.mu.Unlock()
		return nil
	}
	snap := m.pending
	m.pending = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	return m.store.Save(ctx, m.opts.Key, snap)
}

// Restore loads the stored snapshot. Anything that fails validation is deleted
// and reported as no recoverable session.
func (m *Manager) Restore(ctx context.Context) (*models.Snapshot, bool) {
	snap, ok, err := m.store.Load(ctx, m.opts.Key)
	if err != nil {
		m.opts.Logger.WithError(err).Warn("snapshot load failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if reason := invalidReason(snap); reason != "" {
		m.opts.Logger.WithField("reason", reason).Info("discarding snapshot")
		if err := m.store.Delete(ctx, m.opts.Key); err != nil {
			m.opts.Logger.WithError(err).Warn("snapshot delete failed")
		}
		return nil, false
	}
	return snap, true
}

func invalidReason(s *models.Snapshot) string {
	switch {
	case s.Version != models.SnapshotVersion:
		return "version"
	case len(s.Config.Missing()) > 0:
		return "config"
	case !s.Status.Valid():
		return "status"
	case s.Status == models.StatusCompleted:
		return "completed"
	case s.Phase != "" && !s.Phase.Valid():
		return "phase"
	case s.CurrentIndex < 0 || (len(s.Questions) > 0 && s.CurrentIndex >= len(s.Questions)):
		return "index"
	}
	return ""
}

// Clear drops pending writes and deletes the stored snapshot.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.pending = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	m.wmu.Lock()
	defer m.wmu.Unlock()
	return m.store.Delete(ctx, m.opts.Key)
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	s.Questions = append([]models.Question(nil), s.Questions...)
	s.Answers = append([]models.Answer(nil), s.Answers...)
	s.Turns = append([]models.Turn(nil), s.Turns...)
	return s
}

// Package logbook owns the in-memory dive collection.
//
// Dive numbers are kept dense: after any operation the numbers in the
// collection are exactly 1..N. Add always appends with max+1 regardless of
// the new dive's date. Delete renumbers every survivor by date, breaking
// ties on the previous dive number, so deleting one dive can shift the
// numbers of others.
//
// Every mutation writes the whole collection through the mirror. A failed
// write is reported as ErrPersist but the in-memory change is kept.
package logbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ScubaLog/metrics"
	"ScubaLog/mirror"
	"ScubaLog/models"
)

// ErrPersist wraps a storage failure that followed a successful in-memory change.
var ErrPersist = errors.New("dive collection not saved")

// Logbook is the authoritative dive collection.
type Logbook struct {
	mu      sync.Mutex
	dives   []models.Dive
	mirror  *mirror.Mirror
	logger  *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
}

type Option func(*Logbook)

func WithLogger(l *slog.Logger) Option {
	return func(b *Logbook) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Logbook) { b.metrics = m }
}

// WithIDFunc replaces the identity generator (UUID v4 by default).
func WithIDFunc(fn func() string) Option {
	return func(b *Logbook) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New loads the collection through m. Loading never fails: a missing or
// unreadable saved collection is replaced by the mirror's seed.
func New(ctx context.Context, m *mirror.Mirror, opts ...Option) *Logbook {
	b := &Logbook{
		mirror: m,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}

	dives, src := m.Load(ctx)
	b.dives = dives
	b.logger.Info("logbook loaded", "dives", len(dives), "source", src.String())
	b.observeSize()
	return b
}

// Add appends d with a fresh identity and the next dive number, then saves.
// The supplied Id and DiveNumber are ignored. The stored record is returned
// even when the error is non-nil.
func (b *Logbook) Add(ctx context.Context, d models.Dive) (models.Dive, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d = d.Clone()
	d.Id = b.newID()
	d.DiveNumber = b.maxDiveNumber() + 1
	b.dives = append(b.dives, d)

	b.logger.Info("dive added", "id", d.Id, "dive_number", d.DiveNumber, "site", d.Site)
	if b.metrics != nil {
		b.metrics.DivesAdded.Inc()
	}
	b.observeSize()

	return d.Clone(), b.persist(ctx, "add")
}

// Delete removes the dive with the given id and renumbers the rest.
// It reports whether a dive was removed; an unknown id is a no-op and
// nothing is written.
func (b *Logbook) Delete(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	remaining := make([]models.Dive, 0, len(b.dives)-1)
	remaining = append(remaining, b.dives[:idx]...)
	remaining = append(remaining, b.dives[idx+1:]...)
	renumber(remaining)
	b.dives = remaining

	b.logger.Info("dive deleted", "id", id, "remaining", len(remaining))
	if b.metrics != nil {
		b.metrics.DivesDeleted.Inc()
	}
	b.observeSize()

	return true, b.persist(ctx, "delete")
}

// OrderedView returns every dive, highest dive number first.
func (b *Logbook) OrderedView() []models.Dive {
	out := b.Snapshot()
	sort.Slice(out, func(i, j int) bool {
		return out[i].DiveNumber > out[j].DiveNumber
	})
	return out
}

// Snapshot returns a copy of the collection in no particular order.
func (b *Logbook) Snapshot() []models.Dive {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Dive, len(b.dives))
	for i, d := range b.dives {
		out[i] = d.Clone()
	}
	return out
}

// Get returns the dive with the given id.
func (b *Logbook) Get(id string) (models.Dive, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return models.Dive{}, false
	}
	return b.dives[idx].Clone(), true
}

func (b *Logbook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dives)
}

// Stats aggregates the current collection.
func (b *Logbook) Stats() models.Stats {
	return ComputeStats(b.Snapshot())
}

// Flush writes the current collection again. Used at shutdown.
func (b *Logbook) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persist(ctx, "flush")
}

// persist saves the collection. Callers hold b.mu.
func (b *Logbook) persist(ctx context.Context, op string) error {
	if err := b.mirror.Save(ctx, b.dives); err != nil {
		b.logger.Error("saving dives failed", "op", op, "error", err)
		if b.metrics != nil {
			b.metrics.PersistFailures.WithLabelValues(op).Inc()
		}
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (b *Logbook) indexOf(id string) int {
	for i := range b.dives {
		if b.dives[i].Id == id {
			return i
		}
	}
	return -1
}

func (b *Logbook) maxDiveNumber() int {
	highest := 0
	for _, d := range b.dives {
		if d.DiveNumber > highest {
			highest = d.DiveNumber
		}
	}
	return highest
}

func (b *Logbook) observeSize() {
	if b.metrics != nil {
		b.metrics.Dives.Set(float64(len(b.dives)))
	}
}

// renumber sorts dives by date, then previous dive number, and assigns
// 1-based positions as the new dive numbers.
func renumber(dives []models.Dive) {
	sort.SliceStable(dives, func(i, j int) bool {
		if c := dives[i].Date.Compare(dives[j].Date); c != 0 {
			return c < 0
		}
		return dives[i].DiveNumber < dives[j].DiveNumber
	})
	for i := range dives {
		dives[i].DiveNumber = i + 1
	}
}

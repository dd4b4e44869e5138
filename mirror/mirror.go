// Package mirror keeps the dive collection in step with a key-value store.
// The collection is read once at startup and written back whole after
// every mutation.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/goccy/go-json"

	"ScubaLog/models"
)

// StorageKey is the key the collection is saved under.
const StorageKey = "deepLogDives"

// BackupKey receives a saved value that failed to decode before the seed
// collection replaces it.
const BackupKey = StorageKey + ".corrupt"

// ErrDuplicateID is returned by Decode when two saved dives share an id.
var ErrDuplicateID = errors.New("duplicate dive id")

// Store is a synchronous string key-value store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Source reports where a loaded collection came from.
type Source int

const (
	SourceStore Source = iota
	SourceSeed
)

func (s Source) String() string {
	if s == SourceStore {
		return "store"
	}
	return "seed"
}

// Mirror loads and saves the whole collection under StorageKey.
type Mirror struct {
	store  Store
	seed   func() []models.Dive
	logger *slog.Logger
}

type Option func(*Mirror)

func WithLogger(l *slog.Logger) Option {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Mirror over store. seed supplies the fallback collection
// and may be nil, in which case the fallback is empty.
func New(store Store, seed func() []models.Dive, opts ...Option) *Mirror {
	m := &Mirror{
		store:  store,
		seed:   seed,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the saved collection. A missing key, a read failure or an
// undecodable value all yield the seed collection instead; failures are
// logged, not returned. An undecodable value is copied to BackupKey first.
// Saved dive numbers that are not exactly 1..N are renumbered in their
// saved order.
func (m *Mirror) Load(ctx context.Context) ([]models.Dive, Source) {
	raw, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		m.logger.Warn("reading saved dives failed, using seed collection", "key", StorageKey, "error", err)
		return m.fallback(), SourceSeed
	}
	if !ok {
		m.logger.Info("no saved dives, using seed collection", "key", StorageKey)
		return m.fallback(), SourceSeed
	}

	dives, err := Decode([]byte(raw))
	if err != nil {
		m.logger.Warn("failed to parse saved dives, using seed collection", "key", StorageKey, "backup_key", BackupKey, "error", err)
		if err := m.store.Set(ctx, BackupKey, raw); err != nil {
			m.logger.Error("backing up unreadable dives failed", "key", BackupKey, "error", err)
		}
		return m.fallback(), SourceSeed
	}
	if compact(dives) {
		m.logger.Warn("saved dive numbers were not 1..N, renumbered", "key", StorageKey, "dives", len(dives))
	}
	return dives, SourceStore
}

// Save overwrites the stored collection with dives.
func (m *Mirror) Save(ctx context.Context, dives []models.Dive) error {
	data, err := Encode(dives)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save dives: %w", err)
	}
	return nil
}

func (m *Mirror) fallback() []models.Dive {
	if m.seed == nil {
		return []models.Dive{}
	}
	return m.seed()
}

// Encode serializes dives as a JSON array. A nil slice encodes as [].
func Encode(dives []models.Dive) ([]byte, error) {
	if dives == nil {
		dives = []models.Dive{}
	}
	data, err := json.Marshal(dives)
	if err != nil {
		return nil, fmt.Errorf("encode dives: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array of dives. Duplicate ids are an error.
func Decode(data []byte) ([]models.Dive, error) {
	var dives []models.Dive
	if err := json.Unmarshal(data, &dives); err != nil {
		return nil, fmt.Errorf("decode dives: %w", err)
	}
	if dives == nil {
		return nil, errors.New("decode dives: stored value is null")
	}
	seen := make(map[string]struct{}, len(dives))
	for _, d := range dives {
		if _, dup := seen[d.Id]; dup {
			return nil, fmt.Errorf("decode dives: %w %q", ErrDuplicateID, d.Id)
		}
		seen[d.Id] = struct{}{}
	}
	return dives, nil
}

// compact renumbers dives 1..N by (dive number, date) unless the numbers
// already are a permutation of 1..N. It reports whether it renumbered.
func compact(dives []models.Dive) bool {
	used := make([]bool, len(dives)+1)
	dense := true
	for _, d := range dives {
		if d.DiveNumber < 1 || d.DiveNumber > len(dives) || used[d.DiveNumber] {
			dense = false
			break
		}
		used[d.DiveNumber] = true
	}
	if dense {
		return false
	}

	sort.SliceStable(dives, func(i, j int) bool {
		if dives[i].DiveNumber != dives[j].DiveNumber {
			return dives[i].DiveNumber < dives[j].DiveNumber
		}
		return dives[i].Date.Compare(dives[j].Date) < 0
	})
	for i := range dives {
		dives[i].DiveNumber = i + 1
	}
	return true
}

package mirror_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScubaLog/kvstore"
	"ScubaLog/logging"
	"ScubaLog/mirror"
	"ScubaLog/models"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("io error")
}

func (brokenStore) Set(context.Context, string, string) error {
	return errors.New("io error")
}

func seedOne() []models.Dive {
	return []models.Dive{{Id: "preload-1", DiveNumber: 1, Date: models.Date{Year: 2016, Month: 11, Day: 12}, Location: "Sydney", Site: "Malabar", Rating: 3}}
}

func sample() []models.Dive {
	temp := 27.0
	vis := "20m"
	return []models.Dive{
		{Id: "a", DiveNumber: 2, Date: models.Date{Year: 2018, Month: 4, Day: 26}, Location: "Fiji", Site: "Plantation Pinnacle", Duration: 44, MaxDepth: 23.5, WaterTemp: &temp, Visibility: &vis, Notes: "lion fish", Rating: 5},
		{Id: "b", DiveNumber: 1, Date: models.Date{Year: 2017, Month: 1, Day: 14}, Location: "Sydney", Site: "Rock Fall", Duration: 21, MaxDepth: 26, Rating: 1},
		{Id: "c", DiveNumber: 3, Date: models.Date{Year: 2018, Month: 4, Day: 26}, Location: "Fiji", Site: "Wilkes Passage", WaterTemp: new(float64), Rating: 3},
	}
}

func newMirror(s mirror.Store) *mirror.Mirror {
	return mirror.New(s, seedOne, mirror.WithLogger(logging.Discard()))
}

func TestLoad_AbsentUsesSeed(t *testing.T) {
	dives, src := newMirror(kvstore.NewMemory()).Load(context.Background())
	assert.Equal(t, mirror.SourceSeed, src)
	assert.Equal(t, seedOne(), dives)
}

func TestLoad_CorruptUsesSeed(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"", "{", "null", `{"id":"x"}`, `[{"date":"12/11/2016"}]`} {
		store := kvstore.NewMemory()
		require.NoError(t, store.Set(ctx, mirror.StorageKey, raw))

		dives, src := newMirror(store).Load(ctx)
		assert.Equal(t, mirror.SourceSeed, src, "value %q", raw)
		assert.Equal(t, seedOne(), dives)
	}
}

func TestLoad_CorruptValueIsBackedUp(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	raw := `[{"id":"x","diveNumber":1,"date":"2020-01-01"},{"id":"x","diveNumber":2,"date":"2020-01-02"}]`
	require.NoError(t, store.Set(ctx, mirror.StorageKey, raw))

	_, src := newMirror(store).Load(ctx)
	assert.Equal(t, mirror.SourceSeed, src)

	kept, ok, err := store.Get(ctx, mirror.BackupKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, raw, kept)
}

func TestLoad_RenumbersSparseNumbers(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, mirror.StorageKey, `[
		{"id":"late","diveNumber":7,"date":"2020-03-01"},
		{"id":"first","diveNumber":2,"date":"2020-01-01"},
		{"id":"twinB","diveNumber":4,"date":"2020-02-02"},
		{"id":"twinA","diveNumber":4,"date":"2020-02-01"}
	]`))

	dives, src := newMirror(store).Load(ctx)
	assert.Equal(t, mirror.SourceStore, src)

	numbers := map[string]int{}
	for _, d := range dives {
		numbers[d.Id] = d.DiveNumber
	}
	assert.Equal(t, map[string]int{"first": 1, "twinA": 2, "twinB": 3, "late": 4}, numbers)
}

func TestLoad_DenseNumbersUntouched(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	m := newMirror(store)
	require.NoError(t, m.Save(ctx, sample()))

	dives, src := m.Load(ctx)
	assert.Equal(t, mirror.SourceStore, src)
	assert.Equal(t, sample(), dives, "order and numbers are kept as saved")
}

func TestLoad_ReadErrorUsesSeed(t *testing.T) {
	dives, src := newMirror(brokenStore{}).Load(context.Background())
	assert.Equal(t, mirror.SourceSeed, src)
	assert.Len(t, dives, 1)
}

func TestLoad_NilSeedIsEmpty(t *testing.T) {
	dives, src := mirror.New(kvstore.NewMemory(), nil).Load(context.Background())
	assert.Equal(t, mirror.SourceSeed, src)
	assert.NotNil(t, dives)
	assert.Empty(t, dives)
}

func TestLoad_EmptyArrayIsNotSeed(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, mirror.StorageKey, "[]"))

	dives, src := newMirror(store).Load(ctx)
	assert.Equal(t, mirror.SourceStore, src)
	assert.Empty(t, dives)
}

func TestSave_Error(t *testing.T) {
	err := newMirror(brokenStore{}).Save(context.Background(), sample())
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	badger, err := kvstore.OpenBadger(kvstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = badger.Close() })

	file, err := kvstore.NewFile(filepath.Join(t.TempDir(), "dives.json"))
	require.NoError(t, err)

	stores := map[string]mirror.Store{
		"memory": kvstore.NewMemory(),
		"file":   file,
		"badger": badger,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := newMirror(store)
			require.NoError(t, m.Save(ctx, sample()))

			got, src := m.Load(ctx)
			assert.Equal(t, mirror.SourceStore, src)
			assert.ElementsMatch(t, sample(), got)
		})
	}
}

func TestEncode_FieldNames(t *testing.T) {
	data, err := mirror.Encode(sample()[1:2])
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"id": "b",
		"diveNumber": 1,
		"date": "2017-01-14",
		"location": "Sydney",
		"site": "Rock Fall",
		"duration": 21,
		"maxDepth": 26,
		"notes": "",
		"rating": 1
	}]`, string(data))

	data, err = mirror.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode_DuplicateID(t *testing.T) {
	_, err := mirror.Decode([]byte(`[{"id":"x","diveNumber":1,"date":"2020-01-01"},{"id":"x","diveNumber":2,"date":"2020-01-02"}]`))
	assert.ErrorIs(t, err, mirror.ErrDuplicateID)
}

func TestDecode_FractionalDuration(t *testing.T) {
	dives, err := mirror.Decode([]byte(`[{"id":"x","diveNumber":1,"date":"2020-01-01","duration":32.5},{"id":"y","diveNumber":2,"date":"2020-01-02","duration":41.2}]`))
	require.NoError(t, err)
	assert.Equal(t, 33, dives[0].Duration)
	assert.Equal(t, 41, dives[1].Duration)
}

func TestDecode_ZeroTempIsNotAbsent(t *testing.T) {
	dives, err := mirror.Decode([]byte(`[{"id":"x","diveNumber":1,"date":"2020-01-01","waterTemp":0},{"id":"y","diveNumber":2,"date":"2020-01-02"}]`))
	require.NoError(t, err)
	require.NotNil(t, dives[0].WaterTemp)
	assert.Equal(t, 0.0, *dives[0].WaterTemp)
	assert.Nil(t, dives[1].WaterTemp)
}

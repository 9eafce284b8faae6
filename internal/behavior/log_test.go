package behavior

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeKV) Save(_ context.Context, key string, value []byte) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

type fakeArchiver struct {
	archived  []Entry
	truncated bool
}

func (f *fakeArchiver) ArchiveEntry(_ context.Context, e Entry) error {
	f.archived = append(f.archived, e)
	return nil
}

func (f *fakeArchiver) Truncate(_ context.Context) error {
	f.truncated = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogAppendAndReload(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	log := NewLog(kv, nil, 100, testLogger())
	log.Open(ctx)

	at := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)
	log.Append(ctx, NewDrinkEntry(at, 0.3, ContextAt(at, 20, nil, 0, 0)))
	log.Append(ctx, NewReminderEntry(at.Add(time.Hour), true, ContextAt(at.Add(time.Hour), 20, &at, 1, 0.3)))

	require.Equal(t, 2, log.Len())
	assert.Equal(t, 1, log.Count(KindDrink))
	assert.Equal(t, 1, log.Count(KindReminder))

	// Reload from the persisted snapshot
	reloaded := NewLog(kv, nil, 100, testLogger())
	reloaded.Open(ctx)
	require.Equal(t, 2, reloaded.Len())
	assert.Equal(t, log.Entries()[0].ID, reloaded.Entries()[0].ID)
}

func TestLogOpenMissingSnapshot(t *testing.T) {
	log := NewLog(newFakeKV(), nil, 100, testLogger())
	log.Open(context.Background())
	assert.Equal(t, 0, log.Len())
}

func TestLogOpenMalformedSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.data[SnapshotKey] = []byte("not json")

	log := NewLog(kv, nil, 100, testLogger())
	log.Open(ctx)
	assert.Equal(t, 0, log.Len())

	// The log stays usable after the fallback
	at := time.Now()
	log.Append(ctx, NewDrinkEntry(at, 0.25, ContextAt(at, 20, nil, 0, 0)))
	assert.Equal(t, 1, log.Len())
}

func TestLogCapsEntries(t *testing.T) {
	ctx := context.Background()
	log := NewLog(newFakeKV(), nil, 5, testLogger())

	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		log.Append(ctx, NewDrinkEntry(at, 0.2, ContextAt(at, 20, nil, i, 0.2)))
	}

	require.Equal(t, 5, log.Len())
	// Oldest entries are dropped first
	assert.Equal(t, base.Add(3*time.Hour), log.Entries()[0].Timestamp)
}

func TestLogArchivesEveryEntry(t *testing.T) {
	ctx := context.Background()
	ar := &fakeArchiver{}
	log := NewLog(newFakeKV(), ar, 100, testLogger())

	at := time.Now()
	log.Append(ctx, NewDrinkEntry(at, 0.3, ContextAt(at, 20, nil, 0, 0)))
	log.Append(ctx, NewReminderEntry(at, false, ContextAt(at, 20, nil, 1, 0.3)))

	require.Len(t, ar.archived, 2)
	assert.Equal(t, KindDrink, ar.archived[0].Kind)
}

func TestLogQueries(t *testing.T) {
	ctx := context.Background()
	log := NewLog(newFakeKV(), nil, 100, testLogger())

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	log.Append(ctx, NewDrinkEntry(day.Add(8*time.Hour), 0.3, Context{Hour: 8, Weekday: 1}))
	log.Append(ctx, NewDrinkEntry(day.Add(12*time.Hour), 0.5, Context{Hour: 12, Weekday: 1}))
	log.Append(ctx, NewReminderEntry(day.Add(14*time.Hour), true, Context{Hour: 14, Weekday: 1}))
	log.Append(ctx, NewDrinkEntry(day.Add(26*time.Hour), 0.4, Context{Hour: 2, Weekday: 2}))

	last := log.LastDrink()
	require.NotNil(t, last)
	assert.Equal(t, day.Add(26*time.Hour), *last)

	assert.Equal(t, 2, log.DrinksOn(day.Add(10*time.Hour)))
	assert.Equal(t, 1, log.DrinksOn(day.Add(25*time.Hour)))

	assert.InDelta(t, 0.4, log.RollingAverage(1), 1e-9)
	assert.InDelta(t, (0.3+0.5+0.4)/3, log.RollingAverage(10), 1e-9)
	assert.Equal(t, 0.0, log.RollingAverage(0))

	drinks := log.ByKind(KindDrink)
	require.Len(t, drinks, 3)
	assert.Equal(t, 8, drinks[0].Context.Hour)
}

func TestLogReset(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	ar := &fakeArchiver{}
	log := NewLog(kv, ar, 100, testLogger())

	at := time.Now()
	log.Append(ctx, NewDrinkEntry(at, 0.3, ContextAt(at, 20, nil, 0, 0)))
	require.Equal(t, 1, log.Len())

	log.Reset(ctx)

	assert.Equal(t, 0, log.Len())
	assert.True(t, ar.truncated)
	_, ok := kv.data[SnapshotKey]
	assert.False(t, ok)
	assert.Nil(t, log.LastDrink())
}

func TestDrinkEntrySuccessThreshold(t *testing.T) {
	at := time.Now()
	assert.True(t, NewDrinkEntry(at, 0.2, Context{}).Success)
	assert.False(t, NewDrinkEntry(at, 0.15, Context{}).Success)
	assert.True(t, NewReminderEntry(at, true, Context{}).Success)
	assert.False(t, NewReminderEntry(at, false, Context{}).Success)
}

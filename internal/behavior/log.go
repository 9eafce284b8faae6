package behavior

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// KeyValue is the narrow persistence contract the log depends on. Load
// returns (nil, nil) when the key has never been written.
type KeyValue interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Archiver receives every appended entry for durable storage. Failures are
// logged and ignored; the in-memory log stays authoritative for the session.
type Archiver interface {
	ArchiveEntry(ctx context.Context, e Entry) error
	Truncate(ctx context.Context) error
}

// SnapshotKey is the key-value store key holding the serialized log.
const SnapshotKey = "behavior:log"

// Log is the append-only record of user interactions. It has a single
// writer by contract: all mutation happens on the owning service loop, so
// no internal locking exists.
type Log struct {
	entries    []Entry
	kv         KeyValue
	archive    Archiver // optional
	maxEntries int
	logger     *slog.Logger
}

// NewLog creates an empty log. archive may be nil.
func NewLog(kv KeyValue, archive Archiver, maxEntries int, logger *slog.Logger) *Log {
	if maxEntries <= 0 {
		maxEntries = 5000
	}
	return &Log{
		kv:         kv,
		archive:    archive,
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Open loads the persisted snapshot. A missing key or malformed payload
// falls back to an empty log rather than propagating.
func (l *Log) Open(ctx context.Context) {
	data, err := l.kv.Load(ctx, SnapshotKey)
	if err != nil {
		l.logger.Warn("Failed to load behavior log snapshot, starting empty", "error", err)
		return
	}
	if data == nil {
		l.logger.Info("No behavior log snapshot found, starting empty")
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("Malformed behavior log snapshot, starting empty", "error", err)
		return
	}

	l.entries = entries
	l.logger.Info("Behavior log loaded", "entries", len(entries))
}

// Append records a new entry and flushes the snapshot. Persistence failures
// are logged, not surfaced: the entry is kept in memory regardless.
func (l *Log) Append(ctx context.Context, e Entry) {
	l.entries = append(l.entries, e)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}

	l.flush(ctx)

	if l.archive != nil {
		if err := l.archive.ArchiveEntry(ctx, e); err != nil {
			l.logger.Warn("Failed to archive behavior entry", "id", e.ID, "error", err)
		}
	}

	l.logger.Debug("Behavior entry appended",
		"id", e.ID,
		"kind", e.Kind,
		"hour", e.Context.Hour,
		"total", len(l.entries))
}

// Entries returns a copy of the current entries in append order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Count returns the number of entries of the given kind.
func (l *Log) Count(kind Kind) int {
	n := 0
	for _, e := range l.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// ByKind returns entries of the given kind in append order.
func (l *Log) ByKind(kind Kind) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LastDrink returns the timestamp of the most recent drink entry, or nil.
func (l *Log) LastDrink() *time.Time {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind == KindDrink {
			t := l.entries[i].Timestamp
			return &t
		}
	}
	return nil
}

// DrinksOn counts drink entries on the same calendar day as t.
func (l *Log) DrinksOn(t time.Time) int {
	y, m, d := t.Date()
	n := 0
	for _, e := range l.entries {
		if e.Kind != KindDrink {
			continue
		}
		ey, em, ed := e.Timestamp.Date()
		if ey == y && em == m && ed == d {
			n++
		}
	}
	return n
}

// RollingAverage returns the average amount of the last n drink entries,
// or 0 when none exist.
func (l *Log) RollingAverage(n int) float64 {
	if n <= 0 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := len(l.entries) - 1; i >= 0 && count < n; i-- {
		if l.entries[i].Kind != KindDrink {
			continue
		}
		sum += l.entries[i].AmountL
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Reset discards all entries, the persisted snapshot, and the archive.
func (l *Log) Reset(ctx context.Context) {
	l.entries = nil

	if err := l.kv.Delete(ctx, SnapshotKey); err != nil {
		l.logger.Warn("Failed to delete behavior log snapshot", "error", err)
	}
	if l.archive != nil {
		if err := l.archive.Truncate(ctx); err != nil {
			l.logger.Warn("Failed to truncate behavior archive", "error", err)
		}
	}

	l.logger.Info("Behavior log reset")
}

func (l *Log) flush(ctx context.Context) {
	data, err := json.Marshal(l.entries)
	if err != nil {
		l.logger.Warn("Failed to serialize behavior log", "error", err)
		return
	}
	if err := l.kv.Save(ctx, SnapshotKey, data); err != nil {
		l.logger.Warn("Failed to flush behavior log snapshot", "error", err)
	}
}

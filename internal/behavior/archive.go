package behavior

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/okuusi/hydromind/pkg/postgres"
)

// Archive stores behavior entries durably in Postgres. Each entry is written
// with its feature vector so similar situations can be found with a pgvector
// distance query.
//
// Schema (behavior_entries):
//
//	id UUID PRIMARY KEY, ts TIMESTAMPTZ, kind TEXT, amount_l DOUBLE PRECISION,
//	accepted BOOLEAN, success BOOLEAN, context JSONB, features VECTOR(7)
type Archive struct {
	pg postgres.Client
}

// NewArchive creates a Postgres-backed archive.
func NewArchive(pg postgres.Client) *Archive {
	return &Archive{pg: pg}
}

// ArchiveEntry inserts one entry. The features column always holds the
// drink-model encoding; it is well defined for reminder contexts too.
func (a *Archive) ArchiveEntry(ctx context.Context, e Entry) error {
	contextJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	vec := pgvector.NewVector(toFloat32(DrinkFeatures(e.Context)))

	query := `
		INSERT INTO behavior_entries (id, ts, kind, amount_l, accepted, success, context, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = a.pg.Exec(ctx, query,
		e.ID,
		e.Timestamp,
		string(e.Kind),
		e.AmountL,
		e.Accepted,
		e.Success,
		contextJSON,
		vec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert behavior entry: %w", err)
	}

	return nil
}

// SimilarEntries returns up to limit archived entries whose situational
// context is closest to c, most similar first.
func (a *Archive) SimilarEntries(ctx context.Context, c Context, limit int) ([]Entry, error) {
	vec := pgvector.NewVector(toFloat32(DrinkFeatures(c)))

	query := `
		SELECT id, ts, kind, amount_l, accepted, success, context
		FROM behavior_entries
		ORDER BY features <=> $1
		LIMIT $2
	`

	rows, err := a.pg.Query(ctx, query, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var contextJSON []byte

		if err := rows.Scan(&e.ID, &e.Timestamp, &kind, &e.AmountL, &e.Accepted, &e.Success, &contextJSON); err != nil {
			return nil, fmt.Errorf("failed to scan behavior entry: %w", err)
		}
		e.Kind = Kind(kind)
		if err := json.Unmarshal(contextJSON, &e.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate behavior entries: %w", err)
	}

	return entries, nil
}

// Truncate removes all archived entries (full data reset).
func (a *Archive) Truncate(ctx context.Context) error {
	if _, err := a.pg.Exec(ctx, "TRUNCATE behavior_entries"); err != nil {
		return fmt.Errorf("failed to truncate behavior entries: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

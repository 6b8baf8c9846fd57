package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
)

// LoadProfile returns the stored counters for userID, or zero stats for a new user.
func (db *DB) LoadProfile(ctx context.Context, userID string) (domain.RunningStats, error) {
	var stats domain.RunningStats

	err := db.Pool.QueryRow(ctx, `
		SELECT texts_processed, batches_completed, average_confidence
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&stats.TextsProcessed, &stats.BatchesCompleted, &stats.AverageConfidence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RunningStats{}, nil
		}

		return domain.RunningStats{}, persistenceError(opLoadProfile, err)
	}

	return stats, nil
}

// ListResults returns a page of userID's results in history order (newest run first).
func (db *DB) ListResults(ctx context.Context, userID string, limit, offset int) ([]domain.SentimentResult, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := db.Pool.Query(ctx, `
		SELECT id, text, label, score_positive, score_neutral, score_negative,
		       confidence, explanation, keywords, created_at
		FROM sentiment_results
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, persistenceError(opListResults, err)
	}
	defer rows.Close()

	results := make([]domain.SentimentResult, 0, limit)

	for rows.Next() {
		var (
			r         domain.SentimentResult
			id        pgtype.UUID
			label     string
			keywords  []byte
			createdAt pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &r.Text, &label, &r.Scores.Positive, &r.Scores.Neutral, &r.Scores.Negative,
			&r.Confidence, &r.Explanation, &keywords, &createdAt); err != nil {
			return nil, persistenceError(opListResults, fmt.Errorf("scan result row: %w", err))
		}

		r.ID = fromUUID(id)
		r.Label = domain.Label(label)
		r.Timestamp = fromTimestamptz(createdAt)

		r.Keywords, err = decodeKeywords(keywords)
		if err != nil {
			return nil, persistenceError(opListResults, err)
		}

		results = append(results, r)
	}

	if rows.Err() != nil {
		return nil, persistenceError(opListResults, fmt.Errorf("iterate result rows: %w", rows.Err()))
	}

	return results, nil
}

// SaveRun adds the run to userID's counters and stores its results in one
// transaction. The counters are updated with deltas so that replicas saving
// runs for the same user concurrently never overwrite each other.
// Results are inserted last-to-first so that seq order matches history order.
func (db *DB) SaveRun(ctx context.Context, userID string, run domain.Run) (domain.RunningStats, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return domain.RunningStats{}, persistenceError(opSaveRun, fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	if err := lockProfile(ctx, tx, userID); err != nil {
		return domain.RunningStats{}, persistenceError(opSaveRun, err)
	}

	delta := aggregate.Delta(run)

	var stats domain.RunningStats

	err = tx.QueryRow(ctx, `
		INSERT INTO profiles (user_id, texts_processed, batches_completed, average_confidence, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			texts_processed = profiles.texts_processed + EXCLUDED.texts_processed,
			batches_completed = profiles.batches_completed + EXCLUDED.batches_completed,
			average_confidence = CASE
				WHEN profiles.texts_processed + EXCLUDED.texts_processed = 0 THEN profiles.average_confidence
				ELSE (profiles.average_confidence * profiles.texts_processed
					+ EXCLUDED.average_confidence * EXCLUDED.texts_processed)
					/ (profiles.texts_processed + EXCLUDED.texts_processed)
			END,
			updated_at = now()
		RETURNING texts_processed, batches_completed, average_confidence
	`, userID, delta.TextsProcessed, delta.BatchesCompleted, delta.AverageConfidence).
		Scan(&stats.TextsProcessed, &stats.BatchesCompleted, &stats.AverageConfidence)
	if err != nil {
		return domain.RunningStats{}, persistenceError(opSaveRun, fmt.Errorf("upsert profile: %w", err))
	}

	for i := len(run.Results) - 1; i >= 0; i-- {
		r := run.Results[i]

		keywords, err := encodeKeywords(r.Keywords)
		if err != nil {
			return domain.RunningStats{}, persistenceError(opSaveRun, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sentiment_results (id, user_id, text, label, score_positive, score_neutral,
				score_negative, confidence, explanation, keywords, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, toUUID(r.ID), userID, r.Text, string(r.Label), r.Scores.Positive, r.Scores.Neutral,
			r.Scores.Negative, r.Confidence, r.Explanation, keywords, toTimestamptz(r.Timestamp))
		if err != nil {
			return domain.RunningStats{}, persistenceError(opSaveRun, fmt.Errorf("insert result %s: %w", r.ID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RunningStats{}, persistenceError(opSaveRun, fmt.Errorf("commit: %w", err))
	}

	return stats, nil
}

func encodeKeywords(keywords []domain.Keyword) ([]byte, error) {
	if keywords == nil {
		keywords = []domain.Keyword{}
	}

	data, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}

	return data, nil
}

func decodeKeywords(data []byte) ([]domain.Keyword, error) {
	keywords := []domain.Keyword{}
	if len(data) == 0 {
		return keywords, nil
	}

	if err := json.Unmarshal(data, &keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}

	return keywords, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultResultsLimit
	}

	if limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func persistenceError(op string, err error) error {
	observability.PersistenceFailures.WithLabelValues(op).Inc()

	return apperrors.Persistence(op, err)
}

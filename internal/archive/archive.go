// Package archive keeps a postgres ledger of finalized attempts for
// progress reporting.
package archive

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vanhoc/mocktest/internal/model"
)

// Record is one finalized attempt.
type Record struct {
	AttemptID    int64
	MockTestID   int64
	AccountID    int64
	AttemptPoint int
	MaxPoint     int
	Percent      int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewRecord builds a Record from a finalized attempt.
func NewRecord(a *model.Attempt, accountID int64, percent int) Record {
	finished := time.Now().UTC()
	if a.EndTime != nil {
		finished = *a.EndTime
	}
	return Record{
		AttemptID:    a.ID,
		MockTestID:   a.MockTestID,
		AccountID:    accountID,
		AttemptPoint: a.AttemptPoint,
		MaxPoint:     a.MaxPoint,
		Percent:      percent,
		StartedAt:    a.StartTime,
		FinishedAt:   finished,
	}
}

// Store writes records to the attempt_archive table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertBatch upserts records in one statement.
func (s *Store) InsertBatch(ctx context.Context, records []Record) error {
	n := len(records)
	attemptIDs := make([]int64, n)
	testIDs := make([]int64, n)
	accountIDs := make([]int64, n)
	points := make([]int32, n)
	maxPoints := make([]int32, n)
	percents := make([]int32, n)
	startedAts := make([]time.Time, n)
	finishedAts := make([]time.Time, n)

	for i, r := range records {
		attemptIDs[i] = r.AttemptID
		testIDs[i] = r.MockTestID
		accountIDs[i] = r.AccountID
		points[i] = int32(r.AttemptPoint)
		maxPoints[i] = int32(r.MaxPoint)
		percents[i] = int32(r.Percent)
		startedAts[i] = r.StartedAt
		finishedAts[i] = r.FinishedAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO attempt_archive
			(attempt_id, mock_test_id, account_id, attempt_point, max_point, percent, started_at, finished_at)
		SELECT * FROM UNNEST(
			$1::bigint[],
			$2::bigint[],
			$3::bigint[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::timestamptz[],
			$8::timestamptz[]
		)
		ON CONFLICT (attempt_id) DO UPDATE
		SET attempt_point = EXCLUDED.attempt_point,
		    max_point = EXCLUDED.max_point,
		    percent = EXCLUDED.percent,
		    finished_at = EXCLUDED.finished_at`,
		attemptIDs, testIDs, accountIDs, points, maxPoints, percents, startedAts, finishedAts,
	)
	return err
}

// Insert upserts a single record.
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attempt_archive
			(attempt_id, mock_test_id, account_id, attempt_point, max_point, percent, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (attempt_id) DO UPDATE
		SET attempt_point = EXCLUDED.attempt_point,
		    max_point = EXCLUDED.max_point,
		    percent = EXCLUDED.percent,
		    finished_at = EXCLUDED.finished_at`,
		r.AttemptID, r.MockTestID, r.AccountID, r.AttemptPoint, r.MaxPoint, r.Percent, r.StartedAt, r.FinishedAt,
	)
	return err
}

// ListByAccount returns the archived attempts of an account, newest first.
func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT attempt_id, mock_test_id, account_id, attempt_point, max_point, percent, started_at, finished_at
		FROM attempt_archive
		WHERE account_id = $1
		ORDER BY finished_at DESC
		LIMIT $2`, accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.AttemptID, &r.MockTestID, &r.AccountID, &r.AttemptPoint, &r.MaxPoint, &r.Percent, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

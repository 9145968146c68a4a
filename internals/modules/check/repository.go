package check

import (
	"context"
	"pulsewatch/pkg/utils"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Repository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger,
	}
}

const resultColumns = `id, monitor_id, status_code, latency_ms, success, error_message, checked_at`

func scanResult(row pgx.Row) (Result, error) {
	var (
		res     Result
		status  pgtype.Int4
		latency pgtype.Float8
		errMsg  pgtype.Text
	)
	err := row.Scan(&res.ID, &res.MonitorID, &status, &latency, &res.Success, &errMsg, &res.CheckedAt)
	if err != nil {
		return Result{}, err
	}
	res.StatusCode = utils.FromPgInt4(status)
	res.LatencyMS = utils.FromPgFloat8(latency)
	res.ErrorMessage = utils.FromPgText(errMsg)
	return res, nil
}

// RecordResult persists a probe outcome and advances the monitor's
// last_checked_at in the same transaction, so a failure leaves neither half
// behind.
func (r *Repository) RecordResult(ctx context.Context, res Result) (Result, error) {
	const op string = "repo.check.record_result"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Result{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO check_results (monitor_id, status_code, latency_ms, success, error_message, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+resultColumns,
		res.MonitorID,
		utils.ToPgInt4(res.StatusCode),
		utils.ToPgFloat8(res.LatencyMS),
		res.Success,
		utils.ToPgText(res.ErrorMessage),
		utils.ToPgTimestamptz(res.CheckedAt),
	)

	saved, err := scanResult(row)
	if err != nil {
		return Result{}, utils.WrapRepoError(op, err, false, r.logger)
	}

	// last_checked_at only ever advances forward
	_, err = tx.Exec(ctx, `
		UPDATE monitors
		SET last_checked_at = GREATEST(COALESCE(last_checked_at, 'epoch'::timestamptz), $2)
		WHERE id = $1`,
		res.MonitorID, utils.ToPgTimestamptz(res.CheckedAt))
	if err != nil {
		return Result{}, utils.WrapRepoError(op, err, false, r.logger)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return saved, nil
}

// Recent returns the newest results first.
func (r *Repository) Recent(ctx context.Context, monitorID int64, limit int32) ([]Result, error) {
	const op string = "repo.check.recent"

	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM check_results
		 WHERE monitor_id = $1
		 ORDER BY checked_at DESC
		 LIMIT $2`,
		monitorID, limit)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	return collectResults(op, rows, r.logger)
}

// Since returns all results in [since, now), newest first.
func (r *Repository) Since(ctx context.Context, monitorID int64, since time.Time) ([]Result, error) {
	const op string = "repo.check.since"

	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM check_results
		 WHERE monitor_id = $1 AND checked_at >= $2
		 ORDER BY checked_at DESC`,
		monitorID, utils.ToPgTimestamptz(since))
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	return collectResults(op, rows, r.logger)
}

func (r *Repository) Count(ctx context.Context, failedOnly bool) (int64, error) {
	const op string = "repo.check.count"

	q := `SELECT count(*) FROM check_results`
	if failedOnly {
		q += ` WHERE NOT success`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return total, nil
}

func collectResults(op string, rows pgx.Rows, logger *zerolog.Logger) ([]Result, error) {
	results := make([]Result, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, logger)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, logger)
	}
	return results, nil
}

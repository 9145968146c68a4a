package alert

import (
	"context"
	"errors"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"
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

const alertColumns = `id, monitor_id, severity, title, message, resolved, acknowledged, triggered_at, resolved_at, created_at`

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		a          Alert
		resolvedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&a.ID, &a.MonitorID, &a.Severity, &a.Title, &a.Message,
		&a.Resolved, &a.Acknowledged, &a.TriggeredAt, &resolvedAt, &a.CreatedAt,
	)
	if err != nil {
		return Alert{}, err
	}
	a.ResolvedAt = utils.FromPgTimestamptzPtr(resolvedAt)
	return a, nil
}

func (r *Repository) Create(ctx context.Context, d Draft) (Alert, error) {
	const op string = "repo.alert.create"

	row := r.pool.QueryRow(ctx, `
		INSERT INTO alerts (monitor_id, severity, title, message, triggered_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+alertColumns,
		d.MonitorID, d.Severity, d.Title, d.Message, utils.ToPgTimestamptz(d.TriggeredAt),
	)

	a, err := scanAlert(row)
	if err != nil {
		return Alert{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return a, nil
}

// FindDuplicate returns the newest unresolved alert with the same
// (monitor, severity, title) triggered at or after windowStart, or nil.
func (r *Repository) FindDuplicate(ctx context.Context, d Draft, windowStart time.Time) (*Alert, error) {
	const op string = "repo.alert.find_duplicate"

	row := r.pool.QueryRow(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE monitor_id = $1
		  AND severity = $2
		  AND title = $3
		  AND NOT resolved
		  AND triggered_at >= $4
		ORDER BY triggered_at DESC
		LIMIT 1`,
		d.MonitorID, d.Severity, d.Title, utils.ToPgTimestamptz(windowStart),
	)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return &a, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Alert, error) {
	const op string = "repo.alert.get_by_id"

	row := r.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)

	a, err := scanAlert(row)
	if err != nil {
		return Alert{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return a, nil
}

type ListFilter struct {
	UnresolvedOnly bool
	MonitorID      *int64
	Severity       *Severity
	Limit          int32
	Offset         int32
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Alert, int64, error) {
	const op string = "repo.alert.list"

	where := ` WHERE true`
	args := []any{}
	if f.UnresolvedOnly {
		where += ` AND NOT resolved`
	}
	if f.MonitorID != nil {
		args = append(args, *f.MonitorID)
		where += ` AND monitor_id = $` + itoa(len(args))
	}
	if f.Severity != nil {
		args = append(args, *f.Severity)
		where += ` AND severity = $` + itoa(len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}

	args = append(args, f.Limit)
	limitPos := itoa(len(args))
	args = append(args, f.Offset)
	offsetPos := itoa(len(args))

	rows, err := r.pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts`+where+
			` ORDER BY triggered_at DESC LIMIT $`+limitPos+` OFFSET $`+offsetPos,
		args...)
	if err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return alerts, total, nil
}

// PendingWithMonitor fetches unresolved, unacknowledged alerts joined with
// their monitor, oldest-triggered first.
func (r *Repository) PendingWithMonitor(ctx context.Context, limit int32) ([]PendingAlert, error) {
	const op string = "repo.alert.pending_with_monitor"

	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.monitor_id, a.severity, a.title, a.message,
		       a.resolved, a.acknowledged, a.triggered_at, a.resolved_at, a.created_at,
		       m.name, m.url
		FROM alerts a
		JOIN monitors m ON m.id = a.monitor_id
		WHERE NOT a.resolved AND NOT a.acknowledged
		ORDER BY a.triggered_at ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	pending := make([]PendingAlert, 0)
	for rows.Next() {
		var (
			p          PendingAlert
			resolvedAt pgtype.Timestamptz
		)
		err := rows.Scan(
			&p.ID, &p.MonitorID, &p.Severity, &p.Title, &p.Message,
			&p.Resolved, &p.Acknowledged, &p.TriggeredAt, &resolvedAt, &p.CreatedAt,
			&p.MonitorName, &p.MonitorURL,
		)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		p.ResolvedAt = utils.FromPgTimestamptzPtr(resolvedAt)
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return pending, nil
}

func (r *Repository) SetAcknowledged(ctx context.Context, id int64) error {
	const op string = "repo.alert.set_acknowledged"
	return r.flagUpdate(ctx, op, `UPDATE alerts SET acknowledged = true WHERE id = $1`, id)
}

func (r *Repository) SetResolved(ctx context.Context, id int64, at time.Time) error {
	const op string = "repo.alert.set_resolved"

	tag, err := r.pool.Exec(ctx,
		`UPDATE alerts SET resolved = true, resolved_at = $2 WHERE id = $1`,
		id, utils.ToPgTimestamptz(at))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return &apperror.Error{Kind: apperror.NotFound, Op: op, Message: "alert not found"}
	}
	return nil
}

func (r *Repository) BulkResolve(ctx context.Context, monitorID int64, severity *Severity, at time.Time) (int64, error) {
	const op string = "repo.alert.bulk_resolve"

	q := `UPDATE alerts SET resolved = true, resolved_at = $2 WHERE monitor_id = $1 AND NOT resolved`
	args := []any{monitorID, utils.ToPgTimestamptz(at)}
	if severity != nil {
		q += ` AND severity = $3`
		args = append(args, *severity)
	}

	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return tag.RowsAffected(), nil
}

// ResolveOlderThan sweeps unresolved alerts triggered before cutoff.
func (r *Repository) ResolveOlderThan(ctx context.Context, cutoff time.Time, at time.Time) (int64, error) {
	const op string = "repo.alert.resolve_older_than"

	tag, err := r.pool.Exec(ctx,
		`UPDATE alerts SET resolved = true, resolved_at = $2 WHERE NOT resolved AND triggered_at < $1`,
		utils.ToPgTimestamptz(cutoff), utils.ToPgTimestamptz(at))
	if err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) CountUnresolved(ctx context.Context) (int64, error) {
	const op string = "repo.alert.count_unresolved"

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM alerts WHERE NOT resolved`).Scan(&total); err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return total, nil
}

func (r *Repository) flagUpdate(ctx context.Context, op, q string, id int64) error {
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return &apperror.Error{Kind: apperror.NotFound, Op: op, Message: "alert not found"}
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

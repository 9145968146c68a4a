package monitor

import (
	"context"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
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

const monitorColumns = `id, public_id, name, url, type, interval_sec, timeout_sec, enabled, last_checked_at, created_at, updated_at`

func scanMonitor(row pgx.Row) (Monitor, error) {
	var (
		m           Monitor
		publicID    pgtype.UUID
		lastChecked pgtype.Timestamptz
	)
	err := row.Scan(
		&m.ID, &publicID, &m.Name, &m.URL, &m.Type,
		&m.IntervalSec, &m.TimeoutSec, &m.Enabled,
		&lastChecked, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return Monitor{}, err
	}
	m.PublicID = utils.FromPgUUID(publicID)
	m.LastCheckedAt = utils.FromPgTimestamptzPtr(lastChecked)
	return m, nil
}

func (r *Repository) Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	const op string = "repo.monitor.create"

	row := r.pool.QueryRow(ctx, `
		INSERT INTO monitors (public_id, name, url, type, interval_sec, timeout_sec, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+monitorColumns,
		utils.ToPgUUID(uuid.New()), cmd.Name, cmd.URL, cmd.Type,
		cmd.IntervalSec, cmd.TimeoutSec, cmd.Enabled,
	)

	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return m, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Monitor, error) {
	const op string = "repo.monitor.get_by_id"

	row := r.pool.QueryRow(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, id)

	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *Repository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (Monitor, error) {
	const op string = "repo.monitor.get_by_public_id"

	row := r.pool.QueryRow(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE public_id = $1`,
		utils.ToPgUUID(publicID))

	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *Repository) ListEnabled(ctx context.Context) ([]Monitor, error) {
	const op string = "repo.monitor.list_enabled"

	rows, err := r.pool.Query(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	return collectMonitors(op, rows, r.logger)
}

func (r *Repository) List(ctx context.Context, limit, offset int32, enabledOnly bool) ([]Monitor, int64, error) {
	const op string = "repo.monitor.list"

	where := ``
	if enabledOnly {
		where = ` WHERE enabled`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM monitors`+where).Scan(&total); err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+monitorColumns+` FROM monitors`+where+` ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	monitors, err := collectMonitors(op, rows, r.logger)
	if err != nil {
		return nil, 0, err
	}
	return monitors, total, nil
}

func (r *Repository) Update(ctx context.Context, publicID uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	const op string = "repo.monitor.update"

	row := r.pool.QueryRow(ctx, `
		UPDATE monitors SET
			name         = COALESCE($2, name),
			url          = COALESCE($3, url),
			interval_sec = COALESCE($4, interval_sec),
			timeout_sec  = COALESCE($5, timeout_sec),
			enabled      = COALESCE($6, enabled),
			updated_at   = now()
		WHERE public_id = $1
		RETURNING `+monitorColumns,
		utils.ToPgUUID(publicID),
		cmd.Name, cmd.URL, cmd.IntervalSec, cmd.TimeoutSec, cmd.Enabled,
	)

	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

// Delete removes the monitor and, via ON DELETE CASCADE, its check results
// and alerts. Returns the internal id for scheduler teardown.
func (r *Repository) Delete(ctx context.Context, publicID uuid.UUID) (int64, error) {
	const op string = "repo.monitor.delete"

	var id int64
	err := r.pool.QueryRow(ctx,
		`DELETE FROM monitors WHERE public_id = $1 RETURNING id`,
		utils.ToPgUUID(publicID)).Scan(&id)
	if err != nil {
		return 0, utils.WrapRepoError(op, err, true, r.logger)
	}
	return id, nil
}

func (r *Repository) Count(ctx context.Context, enabledOnly bool) (int64, error) {
	const op string = "repo.monitor.count"

	q := `SELECT count(*) FROM monitors`
	if enabledOnly {
		q += ` WHERE enabled`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return total, nil
}

func collectMonitors(op string, rows pgx.Rows, logger *zerolog.Logger) ([]Monitor, error) {
	monitors := make([]Monitor, 0)
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, logger)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, logger)
	}
	return monitors, nil
}

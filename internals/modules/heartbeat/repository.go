package heartbeat

import (
	"context"
	"pulsewatch/pkg/utils"
	"time"

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

const heartbeatColumns = `id, public_id, name, description, expected_interval_sec, last_heartbeat_at, created_at, updated_at`

func scanHeartbeat(row pgx.Row) (Heartbeat, error) {
	var (
		hb       Heartbeat
		publicID pgtype.UUID
		desc     pgtype.Text
		lastAt   pgtype.Timestamptz
	)
	err := row.Scan(
		&hb.ID, &publicID, &hb.Name, &desc,
		&hb.ExpectedIntervalSec, &lastAt, &hb.CreatedAt, &hb.UpdatedAt,
	)
	if err != nil {
		return Heartbeat{}, err
	}
	hb.PublicID = utils.FromPgUUID(publicID)
	hb.Description = utils.FromPgText(desc)
	hb.LastHeartbeatAt = utils.FromPgTimestamptzPtr(lastAt)
	return hb, nil
}

func (r *Repository) Create(ctx context.Context, cmd CreateHeartbeatCmd) (Heartbeat, error) {
	const op string = "repo.heartbeat.create"

	row := r.pool.QueryRow(ctx, `
		INSERT INTO heartbeats (public_id, name, description, expected_interval_sec)
		VALUES ($1, $2, $3, $4)
		RETURNING `+heartbeatColumns,
		utils.ToPgUUID(uuid.New()), cmd.Name, utils.ToPgText(cmd.Description), cmd.ExpectedIntervalSec,
	)

	hb, err := scanHeartbeat(row)
	if err != nil {
		return Heartbeat{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return hb, nil
}

func (r *Repository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (Heartbeat, error) {
	const op string = "repo.heartbeat.get_by_public_id"

	row := r.pool.QueryRow(ctx,
		`SELECT `+heartbeatColumns+` FROM heartbeats WHERE public_id = $1`,
		utils.ToPgUUID(publicID))

	hb, err := scanHeartbeat(row)
	if err != nil {
		return Heartbeat{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return hb, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int32) ([]Heartbeat, int64, error) {
	const op string = "repo.heartbeat.list"

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM heartbeats`).Scan(&total); err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+heartbeatColumns+` FROM heartbeats ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	beats := make([]Heartbeat, 0)
	for rows.Next() {
		hb, err := scanHeartbeat(rows)
		if err != nil {
			return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
		}
		beats = append(beats, hb)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return beats, total, nil
}

func (r *Repository) Update(ctx context.Context, publicID uuid.UUID, cmd UpdateHeartbeatCmd) (Heartbeat, error) {
	const op string = "repo.heartbeat.update"

	row := r.pool.QueryRow(ctx, `
		UPDATE heartbeats SET
			name                  = COALESCE($2, name),
			description           = COALESCE($3, description),
			expected_interval_sec = COALESCE($4, expected_interval_sec),
			updated_at            = now()
		WHERE public_id = $1
		RETURNING `+heartbeatColumns,
		utils.ToPgUUID(publicID), cmd.Name, cmd.Description, cmd.ExpectedIntervalSec,
	)

	hb, err := scanHeartbeat(row)
	if err != nil {
		return Heartbeat{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return hb, nil
}

func (r *Repository) Delete(ctx context.Context, publicID uuid.UUID) error {
	const op string = "repo.heartbeat.delete"

	tag, err := r.pool.Exec(ctx, `DELETE FROM heartbeats WHERE public_id = $1`, utils.ToPgUUID(publicID))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return utils.WrapRepoError(op, pgx.ErrNoRows, true, r.logger)
	}
	return nil
}

// Ping records an external liveness signal; the timestamp only moves forward.
func (r *Repository) Ping(ctx context.Context, publicID uuid.UUID, at time.Time) (Heartbeat, error) {
	const op string = "repo.heartbeat.ping"

	row := r.pool.QueryRow(ctx, `
		UPDATE heartbeats
		SET last_heartbeat_at = GREATEST(COALESCE(last_heartbeat_at, 'epoch'::timestamptz), $2)
		WHERE public_id = $1
		RETURNING `+heartbeatColumns,
		utils.ToPgUUID(publicID), utils.ToPgTimestamptz(at),
	)

	hb, err := scanHeartbeat(row)
	if err != nil {
		return Heartbeat{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return hb, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	const op string = "repo.heartbeat.count"

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM heartbeats`).Scan(&total); err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return total, nil
}

package redisstore

import (
	"context"
	"strconv"
)

// lastStatusKey is a hash of monitor id -> "up"/"down", refreshed after
// every recorded check.
const lastStatusKey = "monitor:last_status"

func (c *Client) SetLastStatus(ctx context.Context, monitorID int64, up bool) error {
	status := "down"
	if up {
		status = "up"
	}
	return retry(ctx, 3, func() error {
		return c.rdb.HSet(ctx, lastStatusKey, strconv.FormatInt(monitorID, 10), status).Err()
	})
}

func (c *Client) DelLastStatus(ctx context.Context, monitorID int64) error {
	return retry(ctx, 3, func() error {
		return c.rdb.HDel(ctx, lastStatusKey, strconv.FormatInt(monitorID, 10)).Err()
	})
}

// LastStatuses returns monitor id -> up for every monitor the scheduler has
// checked since the hash was last cleared.
func (c *Client) LastStatuses(ctx context.Context) (map[int64]bool, error) {
	fields, err := c.rdb.HGetAll(ctx, lastStatusKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[int64]bool, len(fields))
	for field, status := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		out[id] = status == "up"
	}
	return out, nil
}

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pulsewatch/internals/modules/monitor"
	"time"

	"github.com/google/uuid"
)

func monitorKey(publicID uuid.UUID) string {
	return fmt.Sprintf("monitor:%v", publicID.String())
}

func (c *Client) SetMonitor(ctx context.Context, m monitor.Monitor, ttl time.Duration) error {
	jsonM, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return retry(ctx, 3, func() error {
		return c.rdb.Set(ctx, monitorKey(m.PublicID), jsonM, ttl).Err()
	})
}

// GetMonitor returns (nil, nil) on a cache miss.
func (c *Client) GetMonitor(ctx context.Context, publicID uuid.UUID) (*monitor.Monitor, error) {
	res, err := c.rdb.Get(ctx, monitorKey(publicID)).Bytes()
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var m monitor.Monitor
	if err := json.Unmarshal(res, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DelMonitor(ctx context.Context, publicID uuid.UUID) error {
	return retry(ctx, 3, func() error {
		return c.rdb.Del(ctx, monitorKey(publicID)).Err()
	})
}

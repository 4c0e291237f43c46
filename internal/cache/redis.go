package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const unreadTTL = 30 * time.Second

// Client caches the per-user unread badge count. The count is cheap to
// recompute, so entries are short-lived and dropped on any write that
// could change them.
type Client struct {
	Cli *redis.Client
}

func NewRedis(addr, password string, db int) (*Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{Cli: r}, nil
}

func (c *Client) Close() error { return c.Cli.Close() }

func unreadKey(userID string) string { return "unread:" + userID }

func (c *Client) GetUnreadCount(ctx context.Context, userID string) (int64, bool, error) {
	s, err := c.Cli.Get(ctx, unreadKey(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (c *Client) SetUnreadCount(ctx context.Context, userID string, n int64) error {
	return c.Cli.Set(ctx, unreadKey(userID), strconv.FormatInt(n, 10), unreadTTL).Err()
}

func (c *Client) InvalidateUnread(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadKey(id)
	}
	return c.Cli.Del(ctx, keys...).Err()
}

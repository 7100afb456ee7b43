package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%s"
	RoomListKey   = "rooms:list"
)

const (
	UserTTL     = 30 * time.Second
	RoomListTTL = 5 * time.Minute
)

// UserKey returns the cache key for a user row. The TTL is short because
// block state must converge quickly after an escalation.
func UserKey(username string) string {
	return fmt.Sprintf(UserKeyPrefix, username)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, username string) {
	Invalidate(ctx, UserKey(username))
}

func InvalidateRoomList(ctx context.Context) {
	Invalidate(ctx, RoomListKey)
}

package cache

import (
	"context"
	"log/slog"
)

// Leaderboard keys.
const (
	LeaderboardTopKey = "top"
)

// PoolKey is the cache key of a bank's question pool.
func PoolKey(slug string) string {
	return "bank:" + slug
}

// SafeInvalidatePattern invalidates a pattern and logs failures.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs failures.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateLeaderboard drops the ranked leaderboard and the user's cached stats.
func InvalidateLeaderboard(ctx context.Context, cm *CacheManager, userID string) {
	SafeInvalidatePattern(ctx, cm.Leaderboard, "*")
	if userID != "" {
		SafeDelete(ctx, cm.Stats, userID)
		SafeDelete(ctx, cm.User, userID)
	}
}

// InvalidatePool drops the cached pool of a bank and the bank listing.
func InvalidatePool(ctx context.Context, cm *CacheManager, slug string) {
	SafeDelete(ctx, cm.Pool, PoolKey(slug), "banks")
}

package projection

import (
	"context"
	"fmt"
	"time"
)

// BalanceProjection is a cached user balance, in cents.
type BalanceProjection struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

// Settlement invalidates eagerly, so the TTL only bounds staleness after a
// missed invalidation.
const balanceTTL = 30 * time.Second

// UpdateBalance caches a user's balance projection.
func UpdateBalance(ctx context.Context, store Store, p BalanceProjection) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	key := fmt.Sprintf("projection:balance:%s", p.UserID)
	return SetJSON(ctx, store, key, p, balanceTTL)
}

// GetBalance retrieves a cached user balance projection.
func GetBalance(ctx context.Context, store Store, userID string) (*BalanceProjection, error) {
	key := fmt.Sprintf("projection:balance:%s", userID)
	var p BalanceProjection
	if err := GetJSON(ctx, store, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidateBalance removes a user's cached balance.
func InvalidateBalance(ctx context.Context, store Store, userID string) error {
	key := fmt.Sprintf("projection:balance:%s", userID)
	return store.Delete(ctx, key)
}

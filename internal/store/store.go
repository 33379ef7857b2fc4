// Package store defines the durable key/value contract used for summaries,
// rolling stats and coin balances, plus the backends that implement it.
package store

import (
	"context"
	"errors"
	"path"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("store: key not found")

// Gateway is the persistence contract. Load and Save are idempotent and safe
// to retry; values are JSON documents.
type Gateway interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Key layout.
const (
	CoinBankKey         = "data/coin_bank.json"
	DuelStatsKey        = "data/duelStats.json"
	RatingsKey          = "data/ratings.json"
	SpectatorArchiveKey = "data/logs/spectators.json"
	summaryDir          = "data/summaries"
)

// SummaryKey is the key of the summary record for duelID.
func SummaryKey(duelID string) string {
	return path.Join(summaryDir, duelID+".json")
}

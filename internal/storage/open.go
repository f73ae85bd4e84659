package storage

import (
	"context"
	"errors"
	"strings"

	"quotebot/internal/quotes"
	logx "quotebot/pkg/logx"
)

// Store is the persistence API used by the serving core and the bot layer.
type Store interface {
	quotes.Sampler

	// Count reports how many quotes are stored.
	Count(ctx context.Context) (int64, error)

	// Subscriber state for the daily broadcast.
	AddSubscriber(ctx context.Context, chatID int64) error
	RemoveSubscriber(ctx context.Context, chatID int64) error
	Subscribers(ctx context.Context) ([]int64, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

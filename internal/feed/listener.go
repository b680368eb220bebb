package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the Postgres NOTIFY channel written by the tasks trigger.
// The payload is the owner identity.
const Channel = "tasks_changed"

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Listener relays Postgres notifications into a Broker.
type Listener struct {
	pool   *pgxpool.Pool
	broker *Broker
	log    *slog.Logger
}

func NewListener(pool *pgxpool.Pool, broker *Broker) *Listener {
	return &Listener{
		pool:   pool,
		broker: broker,
		log:    logger.With("component", "feed_listener"),
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff on failure.
// After every reconnect all watchers are poked so they reload state that
// may have changed while the connection was down.
func (l *Listener) Run(ctx context.Context) error {
	if l.pool == nil {
		return ErrNoPool
	}
	backoff := minBackoff
	first := true
	for {
		err := l.listen(ctx, first)
		if ctx.Err() != nil {
			return nil
		}
		first = false
		l.log.Warn("listener disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context, first bool) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	l.log.Info("listening", "channel", Channel)
	if !first {
		l.broker.PublishAll()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			l.log.Debug("notification without owner; ignoring")
			continue
		}
		l.broker.Publish(domain.Identity(n.Payload))
	}
}

// ErrNoPool is returned when a listener is started without a database.
var ErrNoPool = errors.New("feed: no database pool")

package amqp

import (
	"context"
	"strings"
	"time"

	"spendlog/internal/log"
)

const maxBackoff = 30 * time.Second

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused", "connection closed", "connection reset",
		"eof", "broken pipe", "closed network connection",
		"channel/connection is not open", "message channel closed",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Dialer opens a fresh client.
type Dialer func() (*Client, error)

// ConsumeWithRetry keeps a consumer alive across broker restarts, redialing
// with exponential backoff on connection errors. It returns when ctx ends or
// on an error that is not connection related.
func ConsumeWithRetry(ctx context.Context, dial Dialer, handler Handler, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentAMQP)

	attempt := 0
	for {
		err := consumeOnce(ctx, dial, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		logger.WarnContext(ctx, "AMQP connection lost, retrying", "attempt", attempt+1, "backoff", wait.String(), "error", err)
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func consumeOnce(ctx context.Context, dial Dialer, handler Handler) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Consume(ctx, handler)
}

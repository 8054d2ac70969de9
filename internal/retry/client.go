// Package retry wraps a broker with retry logic for transient
// failures, using exponential backoff with jitter.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/neuralprobe/d4/internal/broker"
)

// Config contains retry configuration parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultConfig provides sensible defaults for retry operations.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Client wraps a broker with retry logic for order submission.
type Client struct {
	broker broker.Broker
	logger *log.Logger
	config Config
}

// NewClient creates a new retry client with the given broker and optional config.
func NewClient(b broker.Broker, logger *log.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if logger == nil {
		logger = log.Default()
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	return &Client{broker: b, logger: logger, config: cfg}
}

// SubmitMarketOrder implements the order manager's submitter interface
// by delegating to SubmitMarketOrderWithRetry, so live dispatch gets
// retry/backoff without the manager needing to know about it.
func (c *Client) SubmitMarketOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	return c.SubmitMarketOrderWithRetry(ctx, req)
}

// SubmitMarketOrderWithRetry submits a market order with retry and
// exponential backoff, used by the order manager when a live broker
// call fails on a transient network or rate-limit error.
func (c *Client) SubmitMarketOrderWithRetry(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	submitCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-submitCtx.Done():
			return broker.Order{}, fmt.Errorf("order submission timed out after %v: %w", c.config.Timeout, submitCtx.Err())
		default:
		}
		if ctx.Err() != nil {
			return broker.Order{}, fmt.Errorf("operation canceled: %w", ctx.Err())
		}

		c.logger.Printf("order attempt %d/%d for %s %s", attempt+1, c.config.MaxRetries+1, req.Side, req.Symbol)

		ord, err := c.broker.SubmitMarketOrder(submitCtx, req)
		if err == nil {
			c.logger.Printf("order placed successfully on attempt %d", attempt+1)
			return ord, nil
		}

		lastErr = err
		c.logger.Printf("order attempt %d failed: %v", attempt+1, err)

		if c.isTransientError(err) && attempt < c.config.MaxRetries {
			c.logger.Printf("transient error detected, retrying in %v", backoff)
			select {
			case <-time.After(backoff):
				backoff = c.calculateNextBackoff(backoff)
			case <-submitCtx.Done():
				return broker.Order{}, fmt.Errorf("order submission timed out during backoff: %w", submitCtx.Err())
			case <-ctx.Done():
				return broker.Order{}, fmt.Errorf("operation canceled during backoff: %w", ctx.Err())
			}
		} else {
			break
		}
	}

	return broker.Order{}, fmt.Errorf("failed to submit order after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.logger.Printf("failed to generate jitter: %v", err)
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}

	return backoff
}

func (c *Client) isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"i/o timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"temporarily unavailable",
		"server error",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"network",
		"dns",
		"tcp",
		"no such host",
		"deadline exceeded",
		"tls handshake",
		"broken pipe",
		"eof",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

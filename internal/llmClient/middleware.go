package llmclient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware decorates a Client with cross-cutting concerns.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

type clientFunc struct {
	next Client
	gen  func(ctx context.Context, req GenerateRequest) (string, error)
}

func (c *clientFunc) Name() string { return c.next.Name() }
func (c *clientFunc) Close() error { return c.next.Close() }
func (c *clientFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return c.gen(ctx, req)
}

// -------- Rate limiting --------

// RateLimit shares one token bucket across every client it wraps.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	if rps <= 0 {
		return func(next Client) Client { return next }
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next Client) Client {
		return &clientFunc{next: next, gen: func(ctx context.Context, req GenerateRequest) (string, error) {
			if err := lim.Wait(ctx); err != nil {
				return "", err
			}
			return next.Generate(ctx, req)
		}}
	}
}

// -------- Retry with exponential backoff --------

// Retry retries Generate up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and context cancellation stop it at once.
// A RateLimitedError stretches the wait to its RetryAfter.
func Retry(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Client) Client {
		return &clientFunc{next: next, gen: func(ctx context.Context, req GenerateRequest) (string, error) {
			var last error
			for i := 0; i < maxAttempts; i++ {
				out, err := next.Generate(ctx, req)
				if err == nil {
					return out, nil
				}
				if IsPermanent(err) || ctx.Err() != nil {
					return "", err
				}
				last = err
				if i == maxAttempts-1 {
					break
				}
				wait := baseDelay * time.Duration(1<<i)
				var rl *RateLimitedError
				if errors.As(err, &rl) && rl.RetryAfter > wait {
					wait = rl.RetryAfter
				}
				logger.Debug("llm retry",
					zap.String("client", next.Name()),
					zap.Int("attempt", i+1),
					zap.Duration("wait", wait),
					zap.Error(err))
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return "", ctx.Err()
				case <-t.C:
				}
			}
			return "", last
		}}
	}
}

// -------- Logging --------

// WithLogging logs request size, latency and errors.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Client) Client {
		return &clientFunc{next: next, gen: func(ctx context.Context, req GenerateRequest) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, req)
			fields := []zap.Field{
				zap.String("client", next.Name()),
				zap.Int("request_bytes", len(req.Message)+len(req.Context)),
				zap.Int("history", len(req.History)),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				logger.Warn("llm call failed", append(fields, zap.Error(err))...)
				return out, err
			}
			logger.Debug("llm call", append(fields, zap.Int("reply_bytes", len(out)))...)
			return out, nil
		}}
	}
}

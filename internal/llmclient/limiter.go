// internal/llmclient/limiter.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedClient paces calls to an underlying Client so a run never exceeds
// the provider quota. It does not retry.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Client = (*RateLimitedClient)(nil)

// NewRateLimitedClient allows rpm requests per minute with a burst of one.
func NewRateLimitedClient(next Client, rpm float64, logger *zap.Logger) *RateLimitedClient {
	interval := time.Duration(float64(time.Minute) / rpm)
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger.Named("llm_client.limiter"),
	}
}

// Generate blocks until a token is available or ctx is done.
func (r *RateLimitedClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		r.logger.Debug("Request delayed by rate limiter", zap.Duration("waited", waited))
	}
	return r.next.Generate(ctx, req)
}

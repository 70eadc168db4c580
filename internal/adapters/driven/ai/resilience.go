package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// breakerCooldown is how long an open breaker rejects calls before probing again.
const breakerCooldown = 30 * time.Second

// guardedLLM fails fast once the chat provider keeps failing.
type guardedLLM struct {
	driven.LLMService
	breaker *gobreaker.CircuitBreaker
}

// GuardLLM wraps svc in a circuit breaker that opens after failures
// consecutive errors. Calls made while open fail with ErrLLMUnavailable.
// failures <= 0 returns svc unchanged.
func GuardLLM(svc driven.LLMService, failures int) driven.LLMService {
	if failures <= 0 {
		return svc
	}
	return &guardedLLM{
		LLMService: svc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm:" + svc.ModelName(),
			MaxRequests: 1,
			Timeout:     breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(failures)
			},
			IsSuccessful: func(err error) bool {
				// Caller cancellation says nothing about provider health.
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

// Chat forwards to the wrapped service through the breaker.
func (g *guardedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.LLMService.Chat(ctx, messages, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %s is failing, retry in %s", domain.ErrLLMUnavailable, g.ModelName(), breakerCooldown)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// throttledEmbedding spaces embedding requests with a token bucket.
type throttledEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// ThrottleEmbedding limits svc to rps requests per second, with bursts of
// up to one second's worth. rps <= 0 returns svc unchanged.
func ThrottleEmbedding(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if rps <= 0 {
		return svc
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &throttledEmbedding{
		EmbeddingService: svc,
		limiter:          rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for a token, then embeds.
func (t *throttledEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding throttle: %w", err)
	}
	return t.EmbeddingService.Embed(ctx, text)
}

// EmbedBatch waits for a token, then embeds the whole batch as one request.
func (t *throttledEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding throttle: %w", err)
	}
	return t.EmbeddingService.EmbedBatch(ctx, texts)
}

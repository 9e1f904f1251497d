package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// ResilienceOptions tunes the rate limiter and circuit breaker placed in
// front of a remote embedder. Zero values disable rate limiting and use
// breaker defaults.
type ResilienceOptions struct {
	RequestsPerMinute int
	MinRequests       uint32
	FailureRatio      float64
	OpenTimeout       time.Duration
}

// ResilientEmbedder guards a remote embedder. Every failure it returns is
// classified as domain.ErrDependency, including an open breaker.
type ResilientEmbedder struct {
	next    port.Embedder
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewResilientEmbedder(next port.Embedder, opts ResilienceOptions, logger *slog.Logger) *ResilientEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinRequests == 0 {
		opts.MinRequests = 3
	}
	if opts.FailureRatio <= 0 {
		opts.FailureRatio = 0.6
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		burst := max(opts.RequestsPerMinute/10, 1)
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedder/" + next.ModelName(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
		},
		// A caller giving up says nothing about the embedder's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedder circuit breaker changed state",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &ResilientEmbedder{next: next, limiter: limiter, breaker: breaker}
}

func (e *ResilientEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, span := otel.Tracer("embedder").Start(ctx, "embedder.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedder.model", e.next.ModelName()),
		attribute.Int("embedder.inputs", len(texts)),
	)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			span.SetAttributes(attribute.Bool("embedder.rate_limited", true))
			span.SetStatus(codes.Error, err.Error())
			return nil, domain.Dependency("embed: rate limiter", err)
		}
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.next.Embed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("embedder.circuit_open", true))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.Dependency("embed", err)
	}

	vectors := result.([][]float32)
	if len(vectors) != len(texts) {
		err := fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.Dependency("embed", err)
	}
	return vectors, nil
}

func (e *ResilientEmbedder) Dimension() int {
	return e.next.Dimension()
}

func (e *ResilientEmbedder) ModelName() string {
	return e.next.ModelName()
}

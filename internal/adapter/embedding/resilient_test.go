package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/domain"
)

type stubEmbedder struct {
	calls int
	err   error
	short bool
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return 1 }
func (s *stubEmbedder) ModelName() string { return "stub" }

func TestResilientEmbedder_WrapsFailuresAsDependency(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewResilientEmbedder(&stubEmbedder{err: cause}, ResilienceOptions{}, nil)

	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.ErrorIs(t, err, cause)
}

func TestResilientEmbedder_BreakerOpens(t *testing.T) {
	stub := &stubEmbedder{err: errors.New("boom")}
	e := NewResilientEmbedder(stub, ResilienceOptions{
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Hour,
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.Embed(ctx, []string{"x"})
		require.Error(t, err)
	}
	require.Equal(t, 2, stub.calls)

	_, err := e.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, 2, stub.calls, "open breaker must not reach the embedder")
}

func TestResilientEmbedder_RejectsMisalignedOutput(t *testing.T) {
	e := NewResilientEmbedder(&stubEmbedder{short: true}, ResilienceOptions{}, nil)

	_, err := e.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestResilientEmbedder_RateLimiterHonoursContext(t *testing.T) {
	stub := &stubEmbedder{}
	e := NewResilientEmbedder(stub, ResilienceOptions{RequestsPerMinute: 1}, nil)

	_, err := e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = e.Embed(ctx, []string{"b"})
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, 1, stub.calls)
}

func TestResilientEmbedder_PassesThrough(t *testing.T) {
	e := NewResilientEmbedder(&stubEmbedder{}, ResilienceOptions{}, nil)

	out, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "stub", e.ModelName())
	assert.Equal(t, 1, e.Dimension())
}

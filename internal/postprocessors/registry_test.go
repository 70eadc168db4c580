package postprocessors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())
	assert.False(t, r.Has("echo"))

	r.Register("echo", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "echo"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	})
	r.Register("alpha", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "alpha"}, nil
	})

	assert.True(t, r.Has("echo"))
	assert.Equal(t, []string{"alpha", "echo"}, r.Names())

	proc, err := r.Build("echo", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())

	_, err = r.Build("missing", nil)
	assert.Error(t, err)
}

func TestRegisterDefaults(t *testing.T) {
	r := DefaultRegistry()
	assert.True(t, r.Has("chunker"))
}

func TestBuildChunker(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
	}{
		{"nil config", nil, 1000, 200},
		{"size only keeps default overlap", map[string]any{"chunk_size": 500}, 500, 200},
		{"toml integers", map[string]any{"chunk_size": int64(300), "overlap": int64(30)}, 300, 30},
		{"zero overlap", map[string]any{"overlap": 0}, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := r.Build("chunker", tt.cfg)
			require.NoError(t, err)
			c, ok := proc.(*chunker.Processor)
			require.True(t, ok)
			assert.Equal(t, tt.wantSize, c.ChunkSize())
			assert.Equal(t, tt.wantOverlap, c.Overlap())
		})
	}

	t.Run("invalid values", func(t *testing.T) {
		_, err := r.Build("chunker", map[string]any{"chunk_size": -5})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = r.Build("chunker", map[string]any{"overlap": -1})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("separators from toml", func(t *testing.T) {
		proc, err := r.Build("chunker", map[string]any{"chunk_size": 4, "overlap": 0, "separators": []any{"|", ""}})
		require.NoError(t, err)
		assert.Equal(t, []string{"ab|", "cd"}, proc.(*chunker.Processor).Split("ab|cd"))
	})
}

func TestBuildPipeline(t *testing.T) {
	r := DefaultRegistry()

	t.Run("default config", func(t *testing.T) {
		p, err := r.BuildPipeline(domain.DefaultPipelineConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"chunker"}, p.Names())
	})

	t.Run("empty list falls back to chunker", func(t *testing.T) {
		p, err := r.BuildPipeline(domain.PipelineConfig{})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Len())
	})

	t.Run("unknown processor", func(t *testing.T) {
		_, err := r.BuildPipeline(domain.PipelineConfig{Processors: []string{"stemmer"}})
		assert.ErrorContains(t, err, "unknown processor: stemmer")
	})
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		cfg    map[string]any
		want   int
		wantOK bool
	}{
		{"int value", map[string]any{"size": 100}, 100, true},
		{"int64 value", map[string]any{"size": int64(200)}, 200, true},
		{"float64 value", map[string]any{"size": float64(300)}, 300, true},
		{"string value", map[string]any{"size": "400"}, 0, false},
		{"missing key", map[string]any{"other": 100}, 0, false},
		{"nil config", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := getIntFromConfig(tt.cfg, "size")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

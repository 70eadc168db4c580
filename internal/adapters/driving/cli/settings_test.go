package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		setupTestServices(t, newMockSettingsService())

		out, err := execute(t, "", "settings", "show")

		require.NoError(t, err)
		for _, section := range []string{"[Embedding]", "[LLM]", "[Vector Store]", "[Retrieval]", "[Context]", "[Chunking]", "[Limits]"} {
			assert.Contains(t, out, section)
		}
		assert.Contains(t, out, "Configuration is valid.")
	})

	t.Run("invalid", func(t *testing.T) {
		settings := newMockSettingsService()
		settings.validateErr = errors.New("embedding API key missing")
		setupTestServices(t, settings)

		out, err := execute(t, "", "settings", "show")

		require.NoError(t, err)
		assert.Contains(t, out, "Warning: embedding API key missing")
		assert.Contains(t, out, "docqa settings wizard")
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := execute(t, "", "settings", "show")

		assert.ErrorContains(t, err, "settings service not configured")
	})
}

func TestSettingsStore(t *testing.T) {
	t.Run("remote backend asks for url", func(t *testing.T) {
		settings := newMockSettingsService()
		setupTestServices(t, settings)

		out, err := execute(t, "3\nhttp://qdrant:6333\n", "settings", "store")

		require.NoError(t, err)
		assert.Equal(t, domain.VectorBackendQdrant, settings.backend)
		assert.Equal(t, "http://qdrant:6333", settings.backendURL)
		assert.Contains(t, out, "Vector store configured")
	})

	t.Run("default is sqlite", func(t *testing.T) {
		settings := newMockSettingsService()
		setupTestServices(t, settings)

		_, err := execute(t, "\n", "settings", "store")

		require.NoError(t, err)
		assert.Equal(t, domain.VectorBackendSQLite, settings.backend)
		assert.Empty(t, settings.backendURL)
	})
}

package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTheme_LayersOverDefaults(t *testing.T) {
	th, err := ParseTheme([]byte("accent: \"#ff00ff\"\nscanlines: false\n"))
	require.NoError(t, err)

	assert.Equal(t, "#ff00ff", th.Accent)
	assert.False(t, th.Scanlines)
	assert.Equal(t, DefaultTheme().Mouth, th.Mouth)
	assert.Equal(t, 800.0, th.Width)
}

func TestParseTheme_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "accent: [unterminated"},
		{"zero width", "width: 0"},
		{"precision", "precision: 12"},
		{"no stops", "skin_stops: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTheme([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mouth: \"#123456\"\n"), 0o644))

	th, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, "#123456", th.Mouth)

	_, err = LoadTheme(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

package normalization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type format string

const (
	formatYAML format = "yaml"
	formatJSON format = "json"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(map[string]format{"yaml": formatYAML, "yml": formatYAML, "json": formatJSON}, formatYAML)

	tests := []struct {
		input    string
		expected format
	}{
		{"yaml", formatYAML},
		{"  YML ", formatYAML},
		{"Json", formatJSON},
		{"toml", formatYAML},
		{"", formatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizer_NormalizeWithError(t *testing.T) {
	n := NewNormalizer(map[string]format{"yaml": formatYAML, "json": formatJSON}, formatYAML)

	v, err := n.NormalizeWithError(" JSON")
	require.NoError(t, err)
	require.Equal(t, formatJSON, v)

	v, err = n.NormalizeWithError("")
	require.NoError(t, err)
	require.Equal(t, formatYAML, v)

	_, err = n.NormalizeWithError("toml")
	require.ErrorContains(t, err, "valid options: [json yaml]")
	require.Equal(t, []string{"json", "yaml"}, n.ValidKeys())
}

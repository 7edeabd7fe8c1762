package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/analyzer"
)

func TestSeverity_String_allLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity analyzer.Severity
		expected string
	}{
		{analyzer.Safe, "SAFE"},
		{analyzer.Low, "LOW"},
		{analyzer.Medium, "MEDIUM"},
		{analyzer.High, "HIGH"},
		{analyzer.Critical, "CRITICAL"},
		{analyzer.Severity(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.severity.String())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label   string
		want    analyzer.Severity
		wantErr bool
	}{
		{"safe", analyzer.Safe, false},
		{"LOW", analyzer.Low, false},
		{"Medium", analyzer.Medium, false},
		{"high", analyzer.High, false},
		{"critical", analyzer.Critical, false},
		{"severe", analyzer.Safe, true},
		{"", analyzer.Safe, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()

			got, err := analyzer.ParseSeverity(tt.label)
			if tt.wantErr {
				require.ErrorIs(t, err, analyzer.ErrUnknownSeverity)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverity_AtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, analyzer.Critical.AtLeast(analyzer.High))
	assert.True(t, analyzer.High.AtLeast(analyzer.High))
	assert.False(t, analyzer.Medium.AtLeast(analyzer.High))
}

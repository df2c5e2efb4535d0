package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFaceReport(t *testing.T) {
	raw := "```json\n{\n  \"faces\": [\n    {\"box\": {\"x\": 0.1, \"y\": 0.2, \"w\": 0.3, \"h\": 0.4}, \"confidence\": 0.9}, // main face\n  ],\n}\n```"

	report, err := ParseFaceReport(raw)
	require.NoError(t, err)
	require.Len(t, report.Faces, 1)

	f := report.Faces[0]
	assert.Equal(t, 0.1, f.Box.X)
	assert.Equal(t, 0.2, f.Box.Y)
	assert.Equal(t, 0.3, f.Box.W)
	assert.Equal(t, 0.4, f.Box.H)
	assert.Equal(t, 0.9, f.Confidence)
}

func TestParseFaceReportEmptyList(t *testing.T) {
	report, err := ParseFaceReport(`{"faces": []}`)
	require.NoError(t, err)
	assert.Empty(t, report.Faces)
}

func TestParseFaceReportNoJSON(t *testing.T) {
	_, err := ParseFaceReport("I can see two people smiling.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a": 1,}`, want: `{"a": 1}`},
		{in: "/* note */ {\"a\": [1, 2,]}", want: `{"a": [1, 2]}`},
		{in: "Sure! {\"a\": 1} Done.", want: `{"a": 1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeModelJSON(tt.in), "input %q", tt.in)
	}
}

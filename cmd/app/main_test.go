package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

	r, err := parseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, r.From.IsZero())

	r, err = parseRange("2024-01-01", "2024-03-31", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", r.FromString())
	assert.Equal(t, "2024-03-31", r.ToString())

	r, err = parseRange("", "2024-03-31", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", r.FromString())

	r, err = parseRange("2024-05-01", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", r.ToString())

	r, err = parseRange("2024-04-01", "2024-03-01T12:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", r.FromString())
	assert.Equal(t, "2024-04-01", r.ToString())

	_, err = parseRange("03/01/2024", "", now)
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["evaluate"])
	assert.True(t, names["fetch"])

	assert.Error(t, evaluateCmd.Args(evaluateCmd, nil))
	assert.Error(t, fetchCmd.Args(fetchCmd, []string{"A", "B"}))
}

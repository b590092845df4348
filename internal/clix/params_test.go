package clix

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("limit", 0, "")
	fs.String("format", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, ParseLimit(newFlags(t), 10, 0))
	assert.Equal(t, 10, ParseLimit(newFlags(t, "--limit=-3"), 10, 0))
	assert.Equal(t, 4, ParseLimit(newFlags(t, "--limit=4"), 10, 0))
	assert.Equal(t, 10, ParseLimit(newFlags(t, "--limit=50"), 5, 10))
}

func TestParseLimit_MissingFlag(t *testing.T) {
	fs := pflag.NewFlagSet("bare", pflag.ContinueOnError)
	assert.Equal(t, 7, ParseLimit(fs, 7, 0))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(newFlags(t, "--format", " .PDF "))
	require.NoError(t, err)
	assert.Equal(t, "pdf", f)

	_, err = ParseFormat(newFlags(t))
	assert.Error(t, err)
}

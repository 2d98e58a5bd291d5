package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufuslabs/rufus/internal/models"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestCacheInfoCommand(t *testing.T) {
	out := execute(t, "cache", "info")

	var info models.CacheInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Zero(t, info.PageCache.Entries, "a fresh session starts with empty caches")
	assert.Zero(t, info.ExtractionCache.Entries)
}

func TestCacheClearCommand(t *testing.T) {
	out := execute(t, "cache", "clear")

	assert.Contains(t, out, "caches cleared")
	assert.Contains(t, out, "0 page entries")
}

func TestScrapeCommandRequiresArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"scrape", "https://example.com"})
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	assert.Error(t, rootCmd.Execute(), "scrape needs a URL and instructions")
}

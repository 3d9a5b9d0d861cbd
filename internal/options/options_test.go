package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type readConfig struct {
	cacheSize   int
	keepUnknown bool
	calls       []string
}

var errNegativeCache = errors.New("cache size cannot be negative")

func withCacheSize(n int) Option[*readConfig] {
	return New(func(c *readConfig) error {
		if n < 0 {
			return errNegativeCache
		}
		c.cacheSize = n
		c.calls = append(c.calls, "cache")

		return nil
	})
}

func withKeepUnknown(keep bool) Option[*readConfig] {
	return NoError(func(c *readConfig) {
		c.keepUnknown = keep
		c.calls = append(c.calls, "keep")
	})
}

func TestNew(t *testing.T) {
	cfg := &readConfig{}

	require.NoError(t, withCacheSize(64).apply(cfg))
	require.Equal(t, 64, cfg.cacheSize)

	err := withCacheSize(-1).apply(cfg)
	require.ErrorIs(t, err, errNegativeCache)
	require.Equal(t, 64, cfg.cacheSize)
}

func TestNoError(t *testing.T) {
	cfg := &readConfig{}

	require.NoError(t, withKeepUnknown(true).apply(cfg))
	require.True(t, cfg.keepUnknown)
}

func TestApply(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		cfg := &readConfig{}
		err := Apply(cfg, withKeepUnknown(true), withCacheSize(8), withKeepUnknown(false))
		require.NoError(t, err)
		require.Equal(t, []string{"keep", "cache", "keep"}, cfg.calls)
		require.False(t, cfg.keepUnknown)
		require.Equal(t, 8, cfg.cacheSize)
	})

	t.Run("stops at first error", func(t *testing.T) {
		cfg := &readConfig{}
		err := Apply(cfg, withCacheSize(-5), withKeepUnknown(true))
		require.ErrorIs(t, err, errNegativeCache)
		require.Empty(t, cfg.calls)
	})

	t.Run("skips nil options", func(t *testing.T) {
		cfg := &readConfig{}
		require.NoError(t, Apply(cfg, nil, withCacheSize(1)))
		require.Equal(t, 1, cfg.cacheSize)
	})

	t.Run("no options", func(t *testing.T) {
		cfg := &readConfig{}
		require.NoError(t, Apply(cfg))
		require.Empty(t, cfg.calls)
	})
}

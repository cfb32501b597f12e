package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/hybridsearch/internal/config"
)

func TestLockEmbeddedDir(t *testing.T) {
	cfg := config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	cfg.Embedded.Dir = t.TempDir()

	unlock, err := lockEmbeddedDir(&cfg)
	require.NoError(t, err)

	_, err = lockEmbeddedDir(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another seed")

	unlock()
	unlock2, err := lockEmbeddedDir(&cfg)
	require.NoError(t, err)
	unlock2()
}

func TestLockEmbeddedDir_InMemory(t *testing.T) {
	cfg := config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()

	unlock, err := lockEmbeddedDir(&cfg)
	require.NoError(t, err)
	unlock()
}

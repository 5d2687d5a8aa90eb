package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{envSequenceFile, envMaxRetries, envMaxSteps, envHeadless, envPace} {
		t.Setenv(name, "")
	}
	cfg := Load()
	assert.Equal(t, defaultSequenceFile, cfg.SequencePath)
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, defaultMaxSteps, cfg.MaxSteps)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.Pace)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envSequenceFile, "/tmp/steps.json")
	t.Setenv(envMaxRetries, "5")
	t.Setenv(envMaxSteps, "30")
	t.Setenv(envHeadless, "off")
	t.Setenv(envPace, "0")

	cfg := Load()
	assert.Equal(t, "/tmp/steps.json", cfg.SequencePath)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 30, cfg.MaxSteps)
	assert.False(t, cfg.Headless)
	assert.False(t, cfg.Pace)
}

func TestLoadIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv(envMaxRetries, "many")
	t.Setenv(envMaxSteps, "-4")

	cfg := Load()
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, defaultMaxSteps, cfg.MaxSteps)
}

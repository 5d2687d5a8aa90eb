package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envSequenceFile = "TRACKER_SEQUENCE_FILE"
	envMaxRetries   = "TRACKER_MAX_RETRIES"
	envMaxSteps     = "TRACKER_MAX_STEPS"
	envHeadless     = "TRACKER_HEADLESS"
	envPace         = "TRACKER_PACE"

	defaultSequenceFile = "agent_action_steps.json"
	defaultMaxRetries   = 3
	defaultMaxSteps     = 20
)

// Config holds everything the tracker needs. Built once at entry and passed
// into the constructors; nothing reads the environment after this.
type Config struct {
	SequencePath string
	MaxRetries   int
	MaxSteps     int
	Headless     bool
	Pace         bool
}

// Load reads configuration from a .env file (when present) and the
// environment. A missing .env is fine.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		SequencePath: stringEnv(envSequenceFile, defaultSequenceFile),
		MaxRetries:   intEnv(envMaxRetries, defaultMaxRetries),
		MaxSteps:     intEnv(envMaxSteps, defaultMaxSteps),
		Headless:     boolEnv(envHeadless, true),
		Pace:         boolEnv(envPace, true),
	}
}

func stringEnv(name, def string) string {
	if val := strings.TrimSpace(os.Getenv(name)); val != "" {
		return val
	}
	return def
}

func intEnv(name string, def int) int {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func boolEnv(name string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

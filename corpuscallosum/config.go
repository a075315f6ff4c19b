package corpuscallosum

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk, YAML-serializable subset of Config: the
// fields that are plain data rather than injected dependencies
// (EventStore, Logger, Clock). Mirrors registry.Config's config-from-file
// convention of keeping wiring in code and tunables in YAML.
type FileConfig struct {
	Stream struct {
		PendingCapacity int           `yaml:"pending_capacity"`
		Tick            time.Duration `yaml:"tick"`
	} `yaml:"stream"`
	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
		SuccessThreshold int           `yaml:"success_threshold"`
	} `yaml:"breaker"`
	EnablePatternSynthesis bool          `yaml:"enable_pattern_synthesis"`
	SubscribeIdleTimeout   time.Duration `yaml:"subscribe_idle_timeout"`
	SubscriberBuffer       int           `yaml:"subscriber_buffer"`
}

// LoadConfig reads a YAML file at path and applies it on top of base,
// leaving base's injected dependencies (EventStore, Logger, Clock)
// untouched. A zero FileConfig field leaves the corresponding base
// field unchanged, so base can carry defaults the file omits.
func LoadConfig(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("corpuscallosum: read config %q: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("corpuscallosum: parse config %q: %w", path, err)
	}

	cfg := base
	if fc.Stream.PendingCapacity > 0 {
		cfg.Stream.PendingCapacity = fc.Stream.PendingCapacity
	}
	if fc.Stream.Tick > 0 {
		cfg.Stream.Tick = fc.Stream.Tick
	}
	if fc.Breaker.FailureThreshold > 0 {
		cfg.Breaker.FailureThreshold = fc.Breaker.FailureThreshold
	}
	if fc.Breaker.RecoveryTimeout > 0 {
		cfg.Breaker.RecoveryTimeout = fc.Breaker.RecoveryTimeout
	}
	if fc.Breaker.SuccessThreshold > 0 {
		cfg.Breaker.SuccessThreshold = fc.Breaker.SuccessThreshold
	}
	if fc.EnablePatternSynthesis {
		cfg.EnablePatternSynthesis = true
	}
	if fc.SubscribeIdleTimeout > 0 {
		cfg.SubscribeIdleTimeout = fc.SubscribeIdleTimeout
	}
	if fc.SubscriberBuffer > 0 {
		cfg.SubscriberBuffer = fc.SubscriberBuffer
	}
	return cfg, nil
}

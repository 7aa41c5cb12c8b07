// Package config holds the control core's configuration surface: every knob
// enumerated in the acquisition/belief/reflex/contingency/gateway/loop-breaker
// subsystems, loaded from YAML with environment-variable overrides, mirroring
// the teacher's DefaultConfig/Load/Save/applyEnvOverrides shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"agentcore/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all agent control core configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	Belief      BeliefConfig      `yaml:"belief"`
	Reflex      ReflexConfig      `yaml:"reflex"`
	Contingency ContingencyConfig `yaml:"contingency"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	GOAP        GOAPConfig        `yaml:"goap"`
	LoopBreaker LoopBreakerConfig `yaml:"loop_breaker"`
	TaskHistory TaskHistoryConfig `yaml:"task_history"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BeliefConfig configures the Entity Belief Bus (component C).
type BeliefConfig struct {
	MaxSaliencyEventsPerEmission int `yaml:"max_saliency_events_per_emission"`
	SnapshotIntervalTicks        int `yaml:"snapshot_interval_ticks"`
	// AgingK1Ticks: ticks missed before visible -> inferred.
	AgingK1Ticks int `yaml:"aging_k1_ticks"`
	// AgingK2Ticks: ticks missed before inferred -> lost (and eviction-eligible).
	AgingK2Ticks int `yaml:"aging_k2_ticks"`
}

// ReflexConfig configures the Reflex Arbitrator (component D).
type ReflexConfig struct {
	OverrideDurationDefaultTicks  int `yaml:"override_duration_default_ticks"`
	OverrideDurationHighTicks     int `yaml:"override_duration_high_ticks"`
	OverrideDurationCriticalTicks int `yaml:"override_duration_critical_ticks"`
}

// ContingencyConfig configures the P09 Contingency Planner (component E).
type ContingencyConfig struct {
	MaxHorizon      int `yaml:"max_horizon"`
	MaxBranchFactor int `yaml:"max_branch_factor"`
	MaxPolicyNodes  int `yaml:"max_policy_nodes"`
}

// AcquisitionConfig configures the Acquisition Solver (component F).
type AcquisitionConfig struct {
	// FallbackOnReasonerUnavailable: see DESIGN.md Open Question #2.
	FallbackOnReasonerUnavailable bool   `yaml:"fallback_on_reasoner_unavailable"`
	ReasonerTimeout               string `yaml:"reasoner_timeout"`
}

// GatewayConfig configures the Execution Gateway (component G).
type GatewayConfig struct {
	NavigationLeaseMaxActive int `yaml:"navigation_lease_max_active"`
}

// GOAPConfig configures the Enhanced GOAP Reactive Planner (component H).
type GOAPConfig struct {
	PlanBudgetMs   int `yaml:"plan_budget_ms"`
	PlanCacheTTLMs int `yaml:"plan_cache_ttl_ms"`
}

// LoopBreakerConfig configures the Failure Signature & Loop Breaker (component A).
type LoopBreakerConfig struct {
	Threshold        int   `yaml:"threshold"`
	WindowMs         int64 `yaml:"window_ms"`
	SuppressionTTLMs int64 `yaml:"suppression_ttl_ms"`
	ShadowMode       bool  `yaml:"shadow_mode"`
	MaxSignatures    int   `yaml:"max_signatures"`
}

// TaskHistoryConfig configures the Task History Provider (component B).
type TaskHistoryConfig struct {
	TTLMs        int64  `yaml:"ttl_ms"`
	MaxLimit     int    `yaml:"max_limit"`
	MaxTitle     int    `yaml:"max_title"`
	MaxSummary   int    `yaml:"max_summary"`
	EndpointBase string `yaml:"endpoint_base"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	DebugMode  bool            `yaml:"debug_mode"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration, per spec.md §6/§9.
func DefaultConfig() *Config {
	return &Config{
		Name:       "agentcore",
		Version:    "0.1.0",
		TickRateHz: 5,

		Belief: BeliefConfig{
			MaxSaliencyEventsPerEmission: 32,
			SnapshotIntervalTicks:        20,
			AgingK1Ticks:                 6,
			AgingK2Ticks:                 20,
		},

		Reflex: ReflexConfig{
			OverrideDurationDefaultTicks:  10,
			OverrideDurationHighTicks:     10,
			OverrideDurationCriticalTicks: 15,
		},

		Contingency: ContingencyConfig{
			MaxHorizon:      300,
			MaxBranchFactor: 8,
			MaxPolicyNodes:  5000,
		},

		Acquisition: AcquisitionConfig{
			FallbackOnReasonerUnavailable: true,
			ReasonerTimeout:               "5s",
		},

		Gateway: GatewayConfig{
			NavigationLeaseMaxActive: 1,
		},

		GOAP: GOAPConfig{
			PlanBudgetMs:   50,
			PlanCacheTTLMs: 2000,
		},

		LoopBreaker: LoopBreakerConfig{
			Threshold:        3,
			WindowMs:         60_000,
			SuppressionTTLMs: 300_000,
			ShadowMode:       false,
			MaxSignatures:    500,
		},

		TaskHistory: TaskHistoryConfig{
			TTLMs:        10_000,
			MaxLimit:     50,
			MaxTitle:     120,
			MaxSummary:   200,
			EndpointBase: "",
		},

		Logging: LoggingConfig{
			Level:      "info",
			DebugMode:  false,
			JSONFormat: true,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: tick_rate_hz=%d", cfg.TickRateHz)
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if endpoint := os.Getenv("AGENTCORE_TASK_HISTORY_ENDPOINT"); endpoint != "" {
		c.TaskHistory.EndpointBase = endpoint
	}
	if v := os.Getenv("AGENTCORE_DEBUG"); v == "true" || v == "1" {
		c.Logging.DebugMode = true
	}
	if v := os.Getenv("AGENTCORE_TICK_RATE_HZ"); v != "" {
		var hz int
		if _, err := fmt.Sscanf(v, "%d", &hz); err == nil && hz > 0 {
			c.TickRateHz = hz
		}
	}
}

// GetReasonerTimeout returns the acquisition reasoner timeout as a duration.
func (c *Config) GetReasonerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Acquisition.ReasonerTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// TickInterval returns the configured tick period as a duration.
func (c *Config) TickInterval() time.Duration {
	if c.TickRateHz <= 0 {
		return 200 * time.Millisecond
	}
	return time.Second / time.Duration(c.TickRateHz)
}

// Validate validates the configuration, per spec.md §6/§8 invariants that
// depend on config (e.g. MaxLimit <= 50 for task history).
func (c *Config) Validate() error {
	if c.Belief.AgingK1Ticks <= 0 || c.Belief.AgingK2Ticks <= c.Belief.AgingK1Ticks {
		return fmt.Errorf("belief aging thresholds must satisfy 0 < K1 < K2, got K1=%d K2=%d",
			c.Belief.AgingK1Ticks, c.Belief.AgingK2Ticks)
	}
	if c.Belief.MaxSaliencyEventsPerEmission <= 0 {
		return fmt.Errorf("max_saliency_events_per_emission must be > 0")
	}
	if c.TaskHistory.MaxLimit > 50 {
		return fmt.Errorf("task_history.max_limit must be <= 50, got %d", c.TaskHistory.MaxLimit)
	}
	if c.Contingency.MaxHorizon <= 0 || c.Contingency.MaxBranchFactor <= 0 || c.Contingency.MaxPolicyNodes <= 0 {
		return fmt.Errorf("contingency bounds must all be > 0")
	}
	if c.LoopBreaker.Threshold <= 0 || c.LoopBreaker.MaxSignatures <= 0 {
		return fmt.Errorf("loop_breaker threshold and max_signatures must be > 0")
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"agentcore/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agentcore configuration and environment status",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("agentcore Control Core Status")
	fmt.Println("==============================")
	fmt.Printf("Runtime: Go %s\n", runtime.Version())
	fmt.Println()

	cwd := workspace
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	fmt.Printf("Workspace: %s\n", cwd)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ config invalid: %v\n", err)
	} else {
		fmt.Println("✓ config valid")
	}

	fmt.Printf("Tick rate:        %d Hz (%s/tick)\n", cfg.TickRateHz, cfg.TickInterval())
	fmt.Printf("Loop breaker:     threshold=%d window=%dms suppression=%dms shadow=%v\n",
		cfg.LoopBreaker.Threshold, cfg.LoopBreaker.WindowMs, cfg.LoopBreaker.SuppressionTTLMs, cfg.LoopBreaker.ShadowMode)
	fmt.Printf("Task history:     ttl=%dms max_limit=%d endpoint=%q\n",
		cfg.TaskHistory.TTLMs, cfg.TaskHistory.MaxLimit, cfg.TaskHistory.EndpointBase)
	fmt.Printf("Acquisition:      reasoner_timeout=%s fallback=%v\n",
		cfg.Acquisition.ReasonerTimeout, cfg.Acquisition.FallbackOnReasonerUnavailable)
	fmt.Printf("Contingency:      max_horizon=%d max_branch=%d max_nodes=%d\n",
		cfg.Contingency.MaxHorizon, cfg.Contingency.MaxBranchFactor, cfg.Contingency.MaxPolicyNodes)
	fmt.Printf("Gateway:          navigation_lease_max_active=%d\n", cfg.Gateway.NavigationLeaseMaxActive)
	fmt.Printf("GOAP:             plan_budget_ms=%d plan_cache_ttl_ms=%d\n", cfg.GOAP.PlanBudgetMs, cfg.GOAP.PlanCacheTTLMs)
	return nil
}

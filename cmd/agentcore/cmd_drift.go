package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agentcore/internal/driftguard"
)

var (
	driftRoot       string
	driftFailOnWarn bool
)

var driftCheckCmd = &cobra.Command{
	Use:   "drift-check",
	Short: "Scan the module for Execution Gateway structural drift",
	Long: `drift-check walks the module's Go source looking for the raw
OriginExecutor/OriginReactive dispatches, scattered gateway.New
constructions, and raw gateway.Lease composite literals that the Execution
Gateway's single-chokepoint invariant forbids outside their canonical
call sites.`,
	RunE: runDriftCheck,
}

func runDriftCheck(cmd *cobra.Command, args []string) error {
	issues, err := driftguard.Scan(driftRoot)
	if err != nil {
		return fmt.Errorf("drift-check: scan failed: %w", err)
	}

	if len(issues) == 0 {
		fmt.Println("OK: no drift-guard violations found")
		return nil
	}

	fmt.Printf("Issues: %d\n", len(issues))
	for _, it := range issues {
		fmt.Printf("- %s: %s:%d: [%s] %s\n", it.Severity, it.File, it.Line, it.Rule, it.Message)
	}

	if driftFailOnWarn {
		os.Exit(1)
	}
	return nil
}

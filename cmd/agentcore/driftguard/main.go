// driftguard is the standalone CLI entry point for the Execution Gateway
// drift guard (see internal/driftguard for the scan itself). Modeled on the
// teacher's cmd/tools/action_linter (flag-driven scan, severity-sorted issue
// list, exit 0/1/2 convention).
//
// Usage:
//
//	go run ./cmd/agentcore/driftguard -root .
package main

import (
	"flag"
	"fmt"
	"os"

	"agentcore/internal/driftguard"
)

func main() {
	root := flag.String("root", ".", "module root to scan")
	failOnWarn := flag.Bool("fail-on-warn", true, "exit non-zero if any issues found")
	flag.Parse()

	issues, err := driftguard.Scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "driftguard: scan failed: %v\n", err)
		os.Exit(2)
	}

	if len(issues) == 0 {
		fmt.Println("OK: no drift-guard violations found")
		return
	}

	fmt.Printf("Issues: %d\n", len(issues))
	for _, it := range issues {
		fmt.Printf("- %s: %s:%d: [%s] %s\n", it.Severity, it.File, it.Line, it.Rule, it.Message)
	}

	if *failOnWarn {
		os.Exit(1)
	}
}

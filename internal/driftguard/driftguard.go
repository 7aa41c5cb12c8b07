// Package driftguard implements the Execution Gateway drift guard: a
// source-scanning check of the structural invariants spec.md §4.G declares
// as properties rather than runtime checks. Modeled on the teacher's
// cmd/tools/action_linter (flag-driven scan, severity-sorted issue list,
// exit 0/1/2 convention) but walking go/ast instead of regex, matching the
// teacher's own internal/world/go_parser.go for Go-source structural
// analysis. Exported so both the standalone driftguard binary and the
// agentcore root CLI's drift-check subcommand can run the same scan.
package driftguard

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Severity string

const (
	SeverityError Severity = "error"
)

type Issue struct {
	Severity Severity
	Rule     string
	File     string
	Line     int
	Message  string
}

// tolerated call sites for each drift-guard rule, relative to the scan root.
var (
	gatewayPackageDir   = filepath.FromSlash("internal/gateway")
	wrappersFile        = "wrappers.go"
	tolerantFactoryDirs = []string{
		filepath.FromSlash("internal/gateway"),
		filepath.FromSlash("internal/controller"),
		filepath.FromSlash("cmd/agentcore"),
	}
)

// Scan walks root's Go source (skipping _examples, dotdirs, and _test.go
// files) and reports every structural drift-guard violation found, sorted
// by rule then file then line.
func Scan(root string) ([]Issue, error) {
	var issues []Issue
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "_examples" || d.Name() == ".git" || strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		file, err := parser.ParseFile(fset, path, src, 0)
		if err != nil {
			// Non-Go-parseable files are out of scope for this check, not a
			// drift-guard violation.
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		issues = append(issues, checkDirectExecutorCalls(fset, file, rel)...)
		issues = append(issues, checkOriginTags(fset, file, rel)...)
		issues = append(issues, checkGatewayConstruction(fset, file, rel)...)
		issues = append(issues, checkRawLeaseConstruction(fset, file, rel)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		return issues[i].Line < issues[j].Line
	})
	return issues, nil
}

// checkDirectExecutorCalls enforces spec.md §4.G's first drift-guard rule:
// "no direct world-mutation fetch calls outside the gateway module." The
// only sanctioned caller of a gateway.Executor's Execute method is
// Gateway.Dispatch itself (internal/gateway/gateway.go); anywhere else, a
// selector call named Execute off a value named "executor" is a direct
// world-mutation call bypassing the chokepoint.
func checkDirectExecutorCalls(fset *token.FileSet, file *ast.File, rel string) []Issue {
	if filepath.ToSlash(filepath.Dir(rel)) == filepath.ToSlash(gatewayPackageDir) {
		return nil
	}

	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Execute" {
			return true
		}

		var receiverName string
		switch x := sel.X.(type) {
		case *ast.Ident:
			receiverName = x.Name
		case *ast.SelectorExpr:
			receiverName = x.Sel.Name
		default:
			return true
		}
		if receiverName != "executor" {
			return true
		}

		issues = append(issues, Issue{
			Severity: SeverityError,
			Rule:     "no-direct-executor-call",
			File:     rel,
			Line:     fset.Position(call.Pos()).Line,
			Message:  "direct call into a gateway.Executor outside the gateway module",
		})
		return true
	})
	return issues
}

// checkOriginTags enforces: raw use of the OriginExecutor / OriginReactive
// identifiers is only permitted inside internal/gateway/wrappers.go, the one
// file each origin's canonical wrapper lives in, and
// internal/gateway/gateway.go, which declares the Origin constants and
// validates them inside Dispatch without dispatching on either.
func checkOriginTags(fset *token.FileSet, file *ast.File, rel string) []Issue {
	if filepath.ToSlash(filepath.Dir(rel)) == filepath.ToSlash(gatewayPackageDir) && (filepath.Base(rel) == wrappersFile || filepath.Base(rel) == "gateway.go") {
		return nil
	}

	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		ident, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		switch ident.Name {
		case "OriginExecutor":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Rule:     "no-raw-origin-executor",
				File:     rel,
				Line:     fset.Position(ident.Pos()).Line,
				Message:  "raw OriginExecutor dispatch outside the executor wrapper",
			})
		case "OriginReactive":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Rule:     "no-raw-origin-reactive",
				File:     rel,
				Line:     fset.Position(ident.Pos()).Line,
				Message:  "raw OriginReactive dispatch outside the reactive wrapper",
			})
		}
		return true
	})
	return issues
}

// checkGatewayConstruction enforces: gateway.New (the canonical factory for
// the world-mutation chokepoint) is only constructed from the gateway
// package itself, the controller that owns the singleton, or the CLI boot
// path — never scattered across arbitrary call sites.
func checkGatewayConstruction(fset *token.FileSet, file *ast.File, rel string) []Issue {
	dir := filepath.ToSlash(filepath.Dir(rel))
	for _, tolerated := range tolerantFactoryDirs {
		if dir == filepath.ToSlash(tolerated) {
			return nil
		}
	}

	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok || pkgIdent.Name != "gateway" || sel.Sel.Name != "New" {
			return true
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Rule:     "no-scattered-gateway-construction",
			File:     rel,
			Line:     fset.Position(call.Pos()).Line,
			Message:  "gateway.New constructed outside the canonical factory / boot path",
		})
		return true
	})
	return issues
}

// checkRawLeaseConstruction enforces the navigation-lease rule's intent at
// the type level: a gateway.Lease must never be built as a struct literal
// outside internal/gateway, since only LeaseTracker.Acquire may mint one
// (assigning its id from the tracker's increasing counter together with its
// proximity anchor and radius).
func checkRawLeaseConstruction(fset *token.FileSet, file *ast.File, rel string) []Issue {
	if filepath.ToSlash(filepath.Dir(rel)) == filepath.ToSlash(gatewayPackageDir) {
		return nil
	}

	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		sel, ok := lit.Type.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok || pkgIdent.Name != "gateway" || sel.Sel.Name != "Lease" {
			return true
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Rule:     "no-raw-lease-construction",
			File:     rel,
			Line:     fset.Position(lit.Pos()).Line,
			Message:  "gateway.Lease constructed directly outside LeaseTracker.Acquire",
		})
		return true
	})
	return issues
}

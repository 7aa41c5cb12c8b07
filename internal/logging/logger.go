// Package logging provides config-driven categorized file-based logging for
// the agent control core. Logs are written to .agentcore/logs/ with a
// separate file per category. Logging is gated by debug_mode in
// .agentcore/config.json - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	// Core lifecycle categories
	CategoryBoot       Category = "boot"       // Controller construction / startup
	CategoryController Category = "controller" // Per-tick orchestration
	CategoryPerformance Category = "performance" // Tick/latency metrics

	// Belief & reflex categories (components C, D)
	CategoryBelief Category = "belief" // Entity Belief Bus ingest/envelope
	CategoryReflex Category = "reflex" // Reflex Arbitrator / Safety Reader

	// Planning categories (components E, H)
	CategoryContingency Category = "contingency" // P09 policy-tree planner
	CategoryGOAP         Category = "goap"        // GOAP reactive planner

	// Acquisition category (component F)
	CategoryAcquisition Category = "acquisition"

	// Gateway category (component G)
	CategoryGateway Category = "gateway"

	// Supporting categories (components A, B)
	CategoryLoopBreaker Category = "loopbreaker"
	CategoryTaskHistory Category = "taskhistory"

	// Rule evaluation substrate
	CategoryRules Category = "rules"
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid an import cycle with the config package.
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// configFile is the shape of .agentcore/config.json that this package reads
// directly, independent of the YAML config the rest of the module uses, so
// that logging can bootstrap before config.Load runs.
type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry is a JSON log line.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	cfg       loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Call once at
// startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".agentcore", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}

	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== agent control core logging initialized ===")
	boot.Info("workspace: %s", workspace)
	boot.Info("debug mode: %v", cfg.DebugMode)
	boot.Info("log level: %s", cfg.Level)

	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".agentcore", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg = cf.Logging

	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// ReloadConfig reloads the config from disk.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled reports whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug-level message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning-level message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error-level message. Always logged if the logger exists,
// per spec.md §7: invariant.violation diagnostics must never be silenced.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured log entry with custom fields.
func (l *Logger) StructuredLog(level, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if cfg.JSONFormat {
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category.
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// BootWarn logs a warning to the boot category.
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }

// BootError logs an error to the boot category.
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Controller logs to the controller category.
func Controller(format string, args ...interface{}) { Get(CategoryController).Info(format, args...) }

// ControllerDebug logs debug to the controller category.
func ControllerDebug(format string, args ...interface{}) {
	Get(CategoryController).Debug(format, args...)
}

// Belief logs to the belief category.
func Belief(format string, args ...interface{}) { Get(CategoryBelief).Info(format, args...) }

// BeliefDebug logs debug to the belief category.
func BeliefDebug(format string, args ...interface{}) { Get(CategoryBelief).Debug(format, args...) }

// BeliefError logs an error to the belief category.
func BeliefError(format string, args ...interface{}) { Get(CategoryBelief).Error(format, args...) }

// Reflex logs to the reflex category.
func Reflex(format string, args ...interface{}) { Get(CategoryReflex).Info(format, args...) }

// ReflexDebug logs debug to the reflex category.
func ReflexDebug(format string, args ...interface{}) { Get(CategoryReflex).Debug(format, args...) }

// Contingency logs to the contingency category.
func Contingency(format string, args ...interface{}) { Get(CategoryContingency).Info(format, args...) }

// ContingencyDebug logs debug to the contingency category.
func ContingencyDebug(format string, args ...interface{}) {
	Get(CategoryContingency).Debug(format, args...)
}

// GOAP logs to the goap category.
func GOAP(format string, args ...interface{}) { Get(CategoryGOAP).Info(format, args...) }

// GOAPDebug logs debug to the goap category.
func GOAPDebug(format string, args ...interface{}) { Get(CategoryGOAP).Debug(format, args...) }

// Acquisition logs to the acquisition category.
func Acquisition(format string, args ...interface{}) { Get(CategoryAcquisition).Info(format, args...) }

// AcquisitionDebug logs debug to the acquisition category.
func AcquisitionDebug(format string, args ...interface{}) {
	Get(CategoryAcquisition).Debug(format, args...)
}

// Gateway logs to the gateway category.
func Gateway(format string, args ...interface{}) { Get(CategoryGateway).Info(format, args...) }

// GatewayDebug logs debug to the gateway category.
func GatewayDebug(format string, args ...interface{}) { Get(CategoryGateway).Debug(format, args...) }

// GatewayWarn logs a warning to the gateway category.
func GatewayWarn(format string, args ...interface{}) { Get(CategoryGateway).Warn(format, args...) }

// LoopBreaker logs to the loopbreaker category.
func LoopBreaker(format string, args ...interface{}) { Get(CategoryLoopBreaker).Info(format, args...) }

// LoopBreakerDebug logs debug to the loopbreaker category.
func LoopBreakerDebug(format string, args ...interface{}) {
	Get(CategoryLoopBreaker).Debug(format, args...)
}

// TaskHistory logs to the taskhistory category.
func TaskHistory(format string, args ...interface{}) { Get(CategoryTaskHistory).Info(format, args...) }

// TaskHistoryDebug logs debug to the taskhistory category.
func TaskHistoryDebug(format string, args ...interface{}) {
	Get(CategoryTaskHistory).Debug(format, args...)
}

// Rules logs to the rules category.
func Rules(format string, args ...interface{}) { Get(CategoryRules).Info(format, args...) }

// RulesDebug logs debug to the rules category.
func RulesDebug(format string, args ...interface{}) { Get(CategoryRules).Debug(format, args...) }

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold, else debug.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

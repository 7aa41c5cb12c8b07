package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetLoggerState() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
	configMu.Lock()
	cfg = loggingConfig{}
	configMu.Unlock()
	logsDir = ""
	workspace = ""
}

func TestInitializeProductionModeIsSilent(t *testing.T) {
	defer resetLoggerState()
	tempDir := t.TempDir()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, ".agentcore", "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode, stat err=%v", err)
	}
}

func TestInitializeDebugModeCreatesCategoryFiles(t *testing.T) {
	defer resetLoggerState()
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".agentcore")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {"belief": true, "reflex": true}
		}
	}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	Get(CategoryBelief).Info("track %s warmed up", "t-1")
	Get(CategoryReflex).Warn("threat escalated")

	entries, err := os.ReadDir(filepath.Join(tempDir, ".agentcore", "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var sawBelief, sawReflex bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "belief") {
			sawBelief = true
		}
		if strings.Contains(e.Name(), "reflex") {
			sawReflex = true
		}
	}
	if !sawBelief || !sawReflex {
		t.Fatalf("expected belief and reflex log files, got entries=%v", entries)
	}
}

func TestIsCategoryEnabledDefaultsToEnabledWhenUnspecified(t *testing.T) {
	defer resetLoggerState()
	configMu.Lock()
	cfg = loggingConfig{DebugMode: true, Categories: map[string]bool{"belief": false}}
	configMu.Unlock()

	if IsCategoryEnabled(CategoryBelief) {
		t.Fatalf("expected belief disabled explicitly")
	}
	if !IsCategoryEnabled(CategoryReflex) {
		t.Fatalf("expected reflex enabled by default (unspecified)")
	}
}

func TestIsCategoryEnabledFalseWhenDebugModeOff(t *testing.T) {
	defer resetLoggerState()
	configMu.Lock()
	cfg = loggingConfig{DebugMode: false}
	configMu.Unlock()

	if IsCategoryEnabled(CategoryBelief) {
		t.Fatalf("expected all categories disabled when debug_mode is false")
	}
}

func TestNoOpLoggerNeverPanics(t *testing.T) {
	defer resetLoggerState()
	l := &Logger{category: CategoryBelief}
	l.Debug("no file backing")
	l.Info("no file backing")
	l.Warn("no file backing")
	l.Error("no file backing")
	l.StructuredLog("info", "msg", map[string]interface{}{"k": "v"})
}

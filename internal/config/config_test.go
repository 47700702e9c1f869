package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/vearutop/tilesplit/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("TILESPLIT_DEBUG", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if want := filepath.Join(home, ".config", "tilesplit", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if *cfg != config.Default() {
		t.Fatalf("unexpected defaults: %+v", *cfg)
	}
	if cfg.Output.JPEGQuality != 100 || cfg.Output.GainmapQuality != 100 || cfg.Output.FallbackQuality != 95 {
		t.Fatalf("unexpected default qualities: %+v", cfg.Output)
	}
}

func TestLoadXDGConfigHome(t *testing.T) {
	isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path := filepath.Join(xdg, "tilesplit", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[output]\njpeg_quality = 90\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be used, got %q (exists=%t)", path, resolved, exists)
	}
	if cfg.Output.JPEGQuality != 90 || cfg.Output.GainmapQuality != 100 {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
}

func TestLoadProjectFile(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("tilesplit.toml", []byte("[logging]\nlevel = \" DEBUG \"\nformat = \"JSON\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "tilesplit.toml" {
		t.Fatalf("expected project file, got %q (exists=%t)", resolved, exists)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestLoadDebugFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TILESPLIT_DEBUG", "yes")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Logging.Debug {
		t.Fatal("expected TILESPLIT_DEBUG to enable debug logging")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	for name, body := range map[string]string{
		"quality too high": "[output]\njpeg_quality = 101\n",
		"negative quality": "[output]\nfallback_quality = -5\n",
		"same suffixes":    "[output]\nleft_suffix = \"-a\"\nright_suffix = \"-a\"\n",
		"separator":        "[output]\nleft_suffix = \"/x\"\n",
		"log level":        "[logging]\nlevel = \"loud\"\n",
		"log format":       "[logging]\nformat = \"xml\"\n",
		"unknown key":      "[output]\nquality = 80\n",
		"bad toml":         "[output\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestLoadExplicitMissingPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists || resolved != path {
		t.Fatalf("unexpected resolution %q (exists=%t)", resolved, exists)
	}
	if *cfg != config.Default() {
		t.Fatalf("unexpected config: %+v", *cfg)
	}
}

func TestCreateSample(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if decoded != config.Default() {
		t.Fatalf("sample config differs from defaults: %+v", decoded)
	}

	if err := config.CreateSample(path); err == nil || !strings.Contains(err.Error(), "sample config") {
		t.Fatalf("expected existing file to be kept, got %v", err)
	}
}

package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		in, want string
	}{
		{"~/sprites", filepath.Join(home, "sprites")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~", "~"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.in); got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContractHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := contractHome(filepath.Join(home, "art", "hero.png")); got != "~/art/hero.png" {
		t.Errorf("contractHome = %q", got)
	}
	if got := contractHome("/elsewhere/hero.png"); got != "/elsewhere/hero.png" {
		t.Errorf("contractHome = %q", got)
	}
}

func TestReadConfigMissing(t *testing.T) {
	cfg, err := readConfig(filepath.Join(t.TempDir(), "nope.json"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if cfg.Scene != "scene" || cfg.Compression != "default" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestReadConfigCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, "{not json")
	cfg, err := readConfig(path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if cfg.Scene != "scene" {
		t.Errorf("corrupt config should fall back to defaults, got %+v", cfg)
	}
}

func TestReadConfigNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"scene": "", "rows": -3, "columns": 8, "workers": -1}`)
	cfg, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scene != "scene" || cfg.Rows != 0 || cfg.Columns != 8 || cfg.Workers != 0 {
		t.Errorf("normalized = %+v", cfg)
	}
	if g := cfg.grid(); g.Active() {
		t.Errorf("grid %s should be inactive", g)
	}
	if cfg.workers() < 1 {
		t.Errorf("workers() = %d", cfg.workers())
	}
}

func TestLoadConfigFirstRun(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := loadConfig()
	if cfg.Installed == "" {
		t.Error("Installed not stamped on first run")
	}
	path, err := configPath()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk["scene"] != "scene" {
		t.Errorf("scene on disk = %v", onDisk["scene"])
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	want := newDefaultConfig()
	want.SheetsDir = "/art"
	want.Rows, want.Columns = 4, 8
	want.Compression = "best"
	if err := saveConfig(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestConfigDirsFallBackToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Skip(err)
	}
	cfg := newDefaultConfig()
	if cfg.sheetsDir() != wd || cfg.exportDir() != wd {
		t.Errorf("dirs = %q, %q, want %q", cfg.sheetsDir(), cfg.exportDir(), wd)
	}
}

func TestRunSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	current := newDefaultConfig()
	current.SheetsGlob = "/old/**"
	input := strings.Join([]string{
		"/art/sheets", // sheets dir
		"none",        // glob cleared
		"",            // export dir kept
		"boss:fight",  // scene
		"4",           // rows
		"8 frames",    // columns
		"BEST",        // compression
	}, "\n") + "\n"

	cfg := runSetup(path, current, bufio.NewScanner(strings.NewReader(input)))
	if cfg.SheetsDir != "/art/sheets" || cfg.SheetsGlob != "" || cfg.ExportDir != "" {
		t.Errorf("dirs = %+v", cfg)
	}
	if cfg.Scene != "boss_fight" {
		t.Errorf("scene = %q", cfg.Scene)
	}
	if cfg.Rows != 4 || cfg.Columns != 8 || cfg.Compression != "best" {
		t.Errorf("grid/compression = %d %d %q", cfg.Rows, cfg.Columns, cfg.Compression)
	}
	saved, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if saved != cfg {
		t.Errorf("saved = %+v, want %+v", saved, cfg)
	}
}

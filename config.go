package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jakebf/spriteslicer/internal/export"
	"github.com/jakebf/spriteslicer/internal/raster"
	"github.com/jakebf/spriteslicer/internal/selection"
)

// ─── Config ──────────────────────────────────────────────────────────────────

type config struct {
	SheetsDir   string `json:"sheets_dir"`            // directory listed in the sheets pane; "" = working dir
	SheetsGlob  string `json:"sheets_glob,omitempty"` // extra directories, ** allowed
	ExportDir   string `json:"export_dir"`            // where archives are written; "" = working dir
	Scene       string `json:"scene"`                 // default scene name
	Rows        int    `json:"rows"`                  // initial grid
	Columns     int    `json:"columns"`
	Workers     int    `json:"workers,omitempty"`     // export concurrency; 0 = automatic
	Compression string `json:"compression,omitempty"` // default, fast, best, none
	Installed   string `json:"installed,omitempty"`   // RFC3339 timestamp of first run
}

// newDefaultConfig returns a fresh default config.
func newDefaultConfig() config {
	return config{
		Scene:       export.DefaultScene,
		Compression: "default",
	}
}

func (c config) grid() selection.Grid {
	return selection.Grid{Rows: max(c.Rows, 0), Columns: max(c.Columns, 0)}
}

func (c config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return export.DefaultWorkers()
}

func (c config) rasterizer() *raster.Rasterizer {
	return raster.New(raster.ParseCompression(c.Compression))
}

// sheetsDir resolves SheetsDir, falling back to the working directory.
func (c config) sheetsDir() string {
	if c.SheetsDir != "" {
		return c.SheetsDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func (c config) exportDir() string {
	if c.ExportDir != "" {
		return c.ExportDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func configPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(cfgDir, "spriteslicer", "config.json"), nil
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// contractHome replaces the user's home directory prefix with "~/" for display.
func contractHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + rel
	}
	return path
}

func (c *config) normalize() {
	c.SheetsDir = expandHome(c.SheetsDir)
	c.ExportDir = expandHome(c.ExportDir)
	if c.Scene == "" {
		c.Scene = export.DefaultScene
	}
	if c.Compression == "" {
		c.Compression = "default"
	}
	c.Rows = max(c.Rows, 0)
	c.Columns = max(c.Columns, 0)
	c.Workers = max(c.Workers, 0)
}

// readConfig returns the config at path. A missing file is reported as
// os.ErrNotExist; a corrupt one returns defaults and the parse error.
func readConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return newDefaultConfig(), err
	}
	cfg := newDefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return newDefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// loadConfig reads the config, writing defaults on first run.
func loadConfig() config {
	path, err := configPath()
	if err != nil {
		return newDefaultConfig()
	}
	cfg, err := readConfig(path)
	switch {
	case os.IsNotExist(err):
		cfg.Installed = time.Now().Format(time.RFC3339)
		_ = saveConfig(path, cfg)
		return cfg
	case err != nil:
		fmt.Fprintf(os.Stderr, "Warning: corrupt config (%v), using defaults. Run `spriteslicer --setup` to fix.\n", err)
		return cfg
	}
	if cfg.Installed == "" {
		cfg.Installed = time.Now().Format(time.RFC3339)
		_ = saveConfig(path, cfg)
	}
	return cfg
}

func saveConfig(path string, cfg config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// ─── Setup Wizard ────────────────────────────────────────────────────────────

// runSetup prompts for each setting on stdin and saves the result.
func runSetup(path string, current config, scanner *bufio.Scanner) config {
	promptStyle := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)
	if scanner == nil {
		scanner = bufio.NewScanner(os.Stdin)
	}

	fmt.Println(promptStyle.Render("  spriteslicer setup"))
	fmt.Println(dimStyle.Render("  Press enter to keep the current value."))
	fmt.Println()

	prompt := func(label, defVal string) string {
		fmt.Printf("%s %s: ", promptStyle.Render(label), dimStyle.Render("["+defVal+"]"))
		if scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line
			}
		}
		return defVal
	}
	orCwd := func(s string) string {
		if s == "" {
			return "."
		}
		return contractHome(s)
	}
	dirValue := func(s string) string {
		if s == "." {
			return ""
		}
		return expandHome(s)
	}

	cfg := current

	fmt.Println(dimStyle.Render("  Directory listed in the sheets pane (. = where you launch from)."))
	cfg.SheetsDir = dirValue(prompt("Sheets directory ", orCwd(current.SheetsDir)))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Also list sheets from directories matching a glob, e.g. ~/games/**/sprites"))
	globDefault := current.SheetsGlob
	if globDefault == "" {
		fmt.Printf("%s %s: ", promptStyle.Render("Extra sheets glob"), dimStyle.Render("[]"))
	} else {
		fmt.Printf("%s %s: ", promptStyle.Render("Extra sheets glob"), dimStyle.Render("["+globDefault+"]")+" "+dimStyle.Render(`"none" to clear`))
	}
	if scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			cfg.SheetsGlob = globDefault
		case strings.EqualFold(line, "none"):
			cfg.SheetsGlob = ""
		default:
			cfg.SheetsGlob = line
		}
	}
	fmt.Println()

	fmt.Println(dimStyle.Render("  Where {scene}_sprites.zip archives are written."))
	cfg.ExportDir = dirValue(prompt("Export directory ", orCwd(current.ExportDir)))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Default scene name; exported cells are named {scene}_1.png, {scene}_2.png, ..."))
	cfg.Scene = export.SanitizeScene(prompt("Scene name       ", current.Scene))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Grid applied to every sheet on load (0 = unset)."))
	cfg.Rows = selection.ParseDimension(prompt("Rows             ", strconv.Itoa(current.Rows)))
	cfg.Columns = selection.ParseDimension(prompt("Columns          ", strconv.Itoa(current.Columns)))
	fmt.Println()

	fmt.Println(dimStyle.Render("  PNG compression: default, fast, best or none."))
	cfg.Compression = strings.ToLower(prompt("Compression      ", current.Compression))
	fmt.Println()

	cfg.normalize()
	if err := saveConfig(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
	} else {
		fmt.Printf("%s %s\n\n", dimStyle.Render("Saved to"), path)
	}
	return cfg
}

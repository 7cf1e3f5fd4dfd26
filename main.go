package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/jakebf/spriteslicer/internal/logging"
)

const appTitle = "Sprite Slicer"

var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func usage() {
	fmt.Println("spriteslicer: slice sprite sheets into numbered frames")
	fmt.Println()
	fmt.Println("Usage: spriteslicer [flags] [image]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --help, -h    Show this help")
	fmt.Println("  --version     Print version")
	fmt.Println("  --setup       Edit settings")
	fmt.Println("  --demo        Launch with generated sheets")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SPRITESLICER_LOG  log level: debug, info, warn, error (default info)")
}

// initLogging writes to the user cache dir. Failure is not fatal.
func initLogging() {
	base, err := os.UserCacheDir()
	if err != nil {
		return
	}
	level := logging.ParseLevel(os.Getenv("SPRITESLICER_LOG"))
	if err := logging.Initialize(filepath.Join(base, "spriteslicer"), level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
}

func main() {
	var demo, setup bool
	var image string
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--help", "-h":
			usage()
			return
		case "--version":
			fmt.Println("spriteslicer " + getVersion())
			return
		case "--setup":
			setup = true
		case "--demo":
			demo = true
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "unknown flag: %s\nRun spriteslicer --help for usage.\n", arg)
				os.Exit(1)
			}
			if image != "" {
				fmt.Fprintf(os.Stderr, "only one image may be given\n")
				os.Exit(1)
			}
			image = arg
		}
	}

	if setup {
		path, err := configPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		current, _ := readConfig(path) // defaults when missing or corrupt
		runSetup(path, current, nil)
		return
	}

	initLogging()
	defer logging.Close()
	logging.Info("spriteslicer %s starting", getVersion())

	cfg := loadConfig()
	dir := cfg.sheetsDir()
	sheets, err := scanAllSheets(dir, cfg.SheetsGlob)
	if err != nil {
		logging.WithError(err, "scan "+dir)
		fmt.Fprintf(os.Stderr, "Warning: could not scan %s: %v\n", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.WithError(err, "start watcher")
	} else {
		defer watcher.Close()
		for _, d := range append([]string{dir}, resolveSheetDirs(cfg.SheetsGlob)...) {
			if err := watcher.Add(d); err != nil {
				logging.Warn("watch %s: %v", d, err)
			}
		}
	}

	m := newModel(sheets, dir, cfg, watcher)
	switch {
	case demo:
		m.enterDemoMode()
		if s, ok := m.selectedSheet(); ok {
			m.queueOpen(s.path())
		}
	case image != "":
		abs, err := filepath.Abs(expandHome(image))
		if err != nil {
			abs = image
		}
		m.queueOpen(abs)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if fm, ok := final.(model); ok {
		fm.shutdown()
	}
	if err != nil {
		logging.WithError(err, "run")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

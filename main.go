package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"go-stageseq/config"
	"go-stageseq/debug"
	"go-stageseq/midi"
	"go-stageseq/script"
	"go-stageseq/sequencer"
	"go-stageseq/theme"
	"go-stageseq/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-stageseq/config.json)")
	scriptPath := flag.String("script", "", "Lua preset to run at startup")
	engineType := flag.String("engine", "", "engine override: midi, beep or none")
	port := flag.String("port", "", "MIDI output port override")
	input := flag.String("input", "", "MIDI keyboard input for external chords")
	headless := flag.Bool("headless", false, "play without the TUI until interrupted")
	debugLog := flag.Bool("debug", false, "write a debug log to ~/.config/go-stageseq/debug.log")
	flag.Parse()

	if err := run(*configPath, *scriptPath, *engineType, *port, *input, *headless, *debugLog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, scriptPath, engineType, port, input string, headless, debugLog bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if engineType != "" {
		cfg.Engine.Type = config.EngineType(engineType)
	}
	if port != "" {
		cfg.Engine.PortName = port
	}
	if input != "" {
		cfg.Engine.InputPort = input
	}
	cfg.Validate()

	if cfg.Debug || debugLog {
		if err := debug.Enable(""); err != nil {
			return err
		}
		defer debug.Disable()
	}

	store := sequencer.NewPatternStore()
	cfg.Apply(store)
	if scriptPath != "" {
		if err := script.NewRunner(store).RunFile(scriptPath); err != nil {
			return err
		}
	}

	defer midi.CloseDriver()
	out, err := openEngine(cfg)
	if err != nil {
		// keep going so patterns can still be edited
		fmt.Fprintf(os.Stderr, "Warning: %v (running without an engine)\n", err)
		out = &engineHandle{}
	}
	defer out.close()

	if cfg.Engine.InputPort != "" {
		kb, err := midi.OpenKeyboardInput(cfg.Engine.InputPort, chordToStore(store))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: keyboard input: %v\n", err)
		} else {
			defer kb.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := sequencer.NewManager(store, out.engine, cfg.Options())
	stopEngine := out.start()
	defer stopEngine()
	mgr.StartRuntime(ctx)
	// runs before stopEngine so its note-offs reach the port
	defer mgr.Shutdown()

	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		debug.Log("main", "headless engine=%s", cfg.Engine.Type)
		mgr.Start()
		fmt.Println("go-stageseq playing, ctrl+c to stop")
		<-ctx.Done()
		mgr.Stop()
	} else {
		th, err := loadTheme(cfg.UI.Theme)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		p := tea.NewProgram(tui.NewModel(mgr, th), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return err
		}
	}

	cfg.UI.LastTempo = store.Tempo()
	if err := cfg.Save(configPath); err != nil {
		debug.Log("main", "save config: %v", err)
	}
	return nil
}

// chordToStore makes keyboard chords drive every stage's chord intervals
func chordToStore(store *sequencer.PatternStore) midi.ChordFunc {
	return func(root int, intervals []int) {
		store.SetRoot(root)
		for i := 0; i < sequencer.NumStages; i++ {
			store.SetChord(i, intervals)
		}
		store.SetUseChord(true)
	}
}

func loadTheme(path string) (*theme.Theme, error) {
	if path == "" {
		return theme.New(nil), nil
	}
	p, err := theme.LoadGPL(path)
	if err != nil {
		return theme.New(nil), err
	}
	return theme.New(p), nil
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"go-stageseq/midi"
	"go-stageseq/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "note":
		err = sendNote(arg(2), arg(3))
	case "chord":
		err = monitorChords(arg(2))
	default:
		usage()
	}
	midi.CloseDriver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int) string {
	if i < len(os.Args) {
		return os.Args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                - List all MIDI ports")
	fmt.Println("  note [port] [note]  - Play a test note through the output engine")
	fmt.Println("  chord [port]        - Print chords held on a keyboard input")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, err := midi.PortNames(midi.PortTimeout)
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

// sendNote schedules a half-second note 100ms ahead and waits for it to play
func sendNote(port, noteArg string) error {
	note := 60
	if noteArg != "" {
		n, err := strconv.Atoi(noteArg)
		if err != nil || n < 0 || n > 127 {
			return fmt.Errorf("note %q: want 0-127", noteArg)
		}
		note = n
	}

	e, err := midi.OpenOutput(port, midi.OutputOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				close(done)
				return
			case <-ticker.C:
				e.DispatchDue(e.CurrentSampleTime())
			}
		}
	}()

	rate := uint64(e.SampleRate())
	at := e.CurrentSampleTime() + rate/10
	e.ScheduleNoteOn(uint8(note), 100, at, 1, 0)
	e.ScheduleNoteOff(uint8(note), at+rate/2, 1, 0)
	fmt.Printf("Playing %s on channel 1...\n", sequencer.NoteName(note))

	for e.Pending() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	close(stop)
	<-done
	fmt.Println("Done")
	return nil
}

func monitorChords(port string) error {
	kb, err := midi.OpenKeyboardInput(port, func(root int, intervals []int) {
		fmt.Printf("%-2s %v\n", sequencer.PitchName(root), intervals)
	})
	if err != nil {
		return err
	}
	defer kb.Close()

	fmt.Printf("Listening on %s, ctrl+c to stop\n", kb.ID())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	return nil
}

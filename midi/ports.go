package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var (
	// ErrNoPort is returned when no MIDI port matches the requested name
	ErrNoPort = errors.New("no such MIDI port")
	// ErrPortTimeout is returned when the MIDI driver does not answer in time
	ErrPortTimeout = errors.New("MIDI port scan timed out")
)

// PortTimeout bounds port scans (CoreMIDI can hang)
const PortTimeout = 3 * time.Second

type portsResult struct {
	ins  []drivers.In
	outs []drivers.Out
}

// scanPorts lists ports with a timeout
func scanPorts(timeout time.Duration) (portsResult, error) {
	ch := make(chan portsResult, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- portsResult{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return portsResult{}, ErrPortTimeout
	}
}

// PortNames returns the names of all input and output ports
func PortNames(timeout time.Duration) (ins, outs []string, err error) {
	r, err := scanPorts(timeout)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range r.ins {
		ins = append(ins, p.String())
	}
	for _, p := range r.outs {
		outs = append(outs, p.String())
	}
	return ins, outs, nil
}

// matchPort picks the port for name: an exact match first, then a
// case-insensitive substring. An empty name selects the first port.
func matchPort(names []string, name string) int {
	if len(names) == 0 {
		return -1
	}
	if name == "" {
		return 0
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	lower := strings.ToLower(name)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return i
		}
	}
	return -1
}

func findOutPort(name string, timeout time.Duration) (drivers.Out, error) {
	r, err := scanPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(r.outs))
	for i, p := range r.outs {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("output %q: %w", name, ErrNoPort)
	}
	return r.outs[i], nil
}

func findInPort(name string, timeout time.Duration) (drivers.In, error) {
	r, err := scanPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(r.ins))
	for i, p := range r.ins {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("input %q: %w", name, ErrNoPort)
	}
	return r.ins[i], nil
}

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}

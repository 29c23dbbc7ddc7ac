package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

// Palette is an ordered color ramp, dark to bright
type Palette struct {
	Name   string
	Colors []RGB
}

// DefaultPalette is the built-in ramp used when no palette file is configured
func DefaultPalette() *Palette {
	return &Palette{
		Name: "dusk",
		Colors: []RGB{
			{0x1a, 0x10, 0x2b},
			{0x2d, 0x1b, 0x45},
			{0x55, 0x2a, 0x6b},
			{0x8a, 0x3f, 0x86},
			{0xc0, 0x5c, 0x9e},
			{0xe8, 0x6a, 0x92},
			{0xf2, 0x8f, 0x7a},
			{0xf7, 0xb2, 0x5e},
			{0xfa, 0xd8, 0x5d},
			{0xff, 0xf4, 0x9c},
		},
	}
}

// LoadGPL reads a GIMP palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open palette: %w", err)
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL parses GIMP palette text
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// R G B [name]
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		var c RGB
		ok := true
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(fields[i])
			if err != nil || v < 0 || v > 255 {
				ok = false
				break
			}
			c[i] = uint8(v)
		}
		if ok {
			p.Colors = append(p.Colors, c)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found")
	}
	return p, nil
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

// Symbols used by the stage grid
type Symbols struct {
	Play    rune // ● gated stage
	Tie     rune // ═ tied into the next stage
	Rest    rune // · silent
	Skip    rune // › skipped after one pulse
	Elide   rune // ⨯ removed from the walk
	Head    rune // ▶ playing
	Cursor  rune // ○ edit cursor
	Pulse   rune // ▮ pulse count bar
	NoPulse rune // ▯
}

// New builds a theme on palette; nil uses DefaultPalette
func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Play:    '●',
			Tie:     '═',
			Rest:    '·',
			Skip:    '›',
			Elide:   '⨯',
			Head:    '▶',
			Cursor:  '○',
			Pulse:   '▮',
			NoPulse: '▯',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.3
	RoleFG      = 0.5
	RoleAccent  = 0.6
	RoleCursor  = 0.7
	RoleActive  = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Styles used by the control surface
func (t *Theme) Title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent())
}

func (t *Theme) Text() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.FG())
}

func (t *Theme) Dim() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted())
}

func (t *Theme) Highlight() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Cursor())
}

func (t *Theme) Playing() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Active())
}

func (t *Theme) Panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Muted()).
		Padding(0, 1)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

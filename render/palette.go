package render

import (
	"os"

	"golang.org/x/term"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
	ansiDim   = "\x1b[2m"
)

// Palette colorizes cells. The zero value leaves text untouched, which is
// also what non-terminal output gets.
type Palette struct {
	enabled bool
}

// NewPalette returns a palette with color forced on or off.
func NewPalette(enabled bool) Palette {
	return Palette{enabled: enabled}
}

// AutoPalette enables color only when f is an interactive terminal.
func AutoPalette(f *os.File) Palette {
	return Palette{enabled: term.IsTerminal(int(f.Fd()))}
}

func (p Palette) wrap(code, s string) string {
	if !p.enabled {
		return s
	}

	return code + s + ansiReset
}

func (p Palette) Red(s string) string   { return p.wrap(ansiRed, s) }
func (p Palette) Green(s string) string { return p.wrap(ansiGreen, s) }
func (p Palette) Blue(s string) string  { return p.wrap(ansiBlue, s) }
func (p Palette) Dim(s string) string   { return p.wrap(ansiDim, s) }

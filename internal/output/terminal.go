package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ColorMode selects when the text report is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// SchemeFor resolves mode against w. Auto colors only a terminal stdout or
// stderr and honors NO_COLOR and FORCE_COLOR.
func SchemeFor(mode ColorMode, w io.Writer) *ColorScheme {
	switch mode {
	case ColorAlways:
		return ForcedColorScheme()
	case ColorNever:
		return NoColorScheme()
	}
	if os.Getenv("NO_COLOR") != "" {
		return NoColorScheme()
	}
	if os.Getenv("FORCE_COLOR") != "" || isTerminal(w) {
		return ForcedColorScheme()
	}
	return NoColorScheme()
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if f == os.Stdout || f == os.Stderr {
		return checkIsTerminal(f)
	}
	return false
}

// checkIsTerminal also accepts Cygwin and MSYS ptys.
func checkIsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

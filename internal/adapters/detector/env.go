// Package detector chooses between the interactive and the linear renderer.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode is the rendering mode of an install.
type OutputMode int

const (
	// ModeAuto picks a mode from the environment.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive renderer.
	ModeTUI
	// ModeLinear forces line-oriented output.
	ModeLinear
)

// DetectEnvironment inspects stdout and the process environment.
func DetectEnvironment() OutputMode {
	return Detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv)
}

// Detect returns ModeTUI only for a terminal outside CI whose TERM is not
// dumb.
func Detect(isTTY bool, getenv func(string) string) OutputMode {
	ci := getenv("CI")
	if !isTTY || ci == "true" || ci == "1" || getenv("TERM") == "dumb" {
		return ModeLinear
	}
	return ModeTUI
}

// ResolveMode applies the --output flag ("auto", "tui", "linear" or "ci")
// to the detected mode. Unknown values keep the detected mode.
func ResolveMode(detected OutputMode, flag string) OutputMode {
	switch flag {
	case "tui":
		return ModeTUI
	case "linear", "ci":
		return ModeLinear
	default:
		return detected
	}
}

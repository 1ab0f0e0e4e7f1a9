package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind selects the marker and color for one doctor or preflight line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	marker string
	color  string
}{
	statusInfo:  {marker: "INFO", color: ansiBlue},
	statusOK:    {marker: "OK", color: ansiGreen},
	statusWarn:  {marker: "WARN", color: ansiYellow},
	statusError: {marker: "ERROR", color: ansiRed},
}

func (k statusKind) style() (marker, color string) {
	if int(k) < 0 || int(k) >= len(statusStyles) {
		k = statusInfo
	}
	return statusStyles[k].marker, statusStyles[k].color
}

// renderStatusLine formats one aligned "Label:  [MARKER] message" line.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	marker, color := kind.style()
	status := "[" + marker + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	if !colorize {
		return line
	}
	return color + line + ansiReset
}

// renderSectionHeader renders a titled divider with a matching rule line.
func renderSectionHeader(title string, colorize bool) []string {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if !colorize {
		return []string{header, rule}
	}
	return []string{ansiBlue + header + ansiReset, ansiBlue + rule + ansiReset}
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

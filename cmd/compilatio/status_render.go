package main

import (
	"fmt"
	"io"

	"compilatio/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const (
	checkLabelWidth = 20
	checkIndent     = "  "
)

func renderCheckLine(result preflight.Result, colorize bool) string {
	statusText := "[OK]"
	color := ansiGreen
	if !result.Passed {
		statusText = "[ERROR]"
		color = ansiRed
	}
	if result.Detail != "" {
		statusText = fmt.Sprintf("%s %s", statusText, result.Detail)
	}
	base := fmt.Sprintf("%s%-*s %s", checkIndent, checkLabelWidth, result.Name+":", statusText)
	if colorize {
		return color + base + ansiReset
	}
	return base
}

func printPreflight(out io.Writer, results []preflight.Result) {
	colorize := isTerminal(out)
	for _, result := range results {
		fmt.Fprintln(out, renderCheckLine(result, colorize))
	}
}

// Package ui holds small terminal output helpers for the CLI commands.
package ui

import "fmt"

// Color functions for terminal output
var (
	Cyan   = colorize("\033[36m%s\033[0m")
	Yellow = colorize("\033[33m%s\033[0m")
	Red    = colorize("\033[31m%s\033[0m")
	Green  = colorize("\033[32m%s\033[0m")
	Dim    = colorize("\033[2m%s\033[0m")
)

// Quiet suppresses all helper output when set (structured logs still go to
// stderr).
var Quiet bool

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintError prints an error message in red.
func PrintError(msg string, args ...interface{}) {
	if Quiet {
		return
	}
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green.
func PrintSuccess(msg string) {
	if Quiet {
		return
	}
	fmt.Println(Green(msg))
}

// PrintInfo prints a label/value pair.
func PrintInfo(label string, value string) {
	if Quiet {
		return
	}
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow.
func PrintWarning(msg string, args ...interface{}) {
	if Quiet {
		return
	}
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

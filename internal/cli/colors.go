// Package cli formats terminal output for the command line tools.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// disableColor is read once; NO_COLOR follows https://no-color.org.
var disableColor = checkNoColor()

func checkNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Style wraps text in colorCode unless colors are disabled.
func Style(text string, colorCode string) string {
	if disableColor {
		return text
	}
	return colorCode + text + Reset
}

// Rule is a horizontal separator line.
func Rule() string {
	return strings.Repeat("-", 50)
}

// Field prints an aligned "label: value" line.
func Field(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%-17s%v\n", Style(label+":", Bold), value)
}

func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Style("✔ ", Green)+fmt.Sprintf(format, args...))
}

func Warn(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Style("⚠ ", Yellow)+fmt.Sprintf(format, args...))
}

package display

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var errStyle = lipgloss.NewStyle().
	Bold(true).
	PaddingTop(1).
	Foreground(lipgloss.Color("9"))

// Error prints the error and any additional messages to the terminal.
func Error(err error, msgs ...string) {
	if err == nil || err.Error() == "" {
		return
	}

	ErrorMsg(err.Error())
	if len(msgs) > 0 {
		ErrorMsg(msgs...)
	}
}

// ErrorMsg prints each message in the error style.
func ErrorMsg(msgs ...string) {
	for _, msg := range msgs {
		fmt.Println(errStyle.Render(msg))
	}
}

// FatalErr prints the error and exits with a non-zero status.
func FatalErr(err error, msgs ...string) {
	Error(err, msgs...)
	os.Exit(1)
}

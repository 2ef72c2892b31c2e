package display

import (
	huhSpinner "github.com/charmbracelet/huh/spinner"
)

// Spin shows a spinner with the given title while fn runs.
func Spin(title string, fn func()) error {
	return huhSpinner.New().Title(title).Action(fn).Run()
}

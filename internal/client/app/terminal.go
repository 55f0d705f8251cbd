package app

import (
	"fmt"
	"io"
)

// terminalNavigator stands in for routing: the CLI cannot open a login
// screen, so it tells the user which command gets them there.
type terminalNavigator struct {
	w io.Writer
}

func (n terminalNavigator) Push(path string) {
	fmt.Fprintf(n.w, "Sign in again with `rolechat login` (%s).\n", path)
}

// terminalNotifier prints notices where a browser would show a modal.
type terminalNotifier struct {
	w io.Writer
}

func (n terminalNotifier) Notify(message string) {
	fmt.Fprintln(n.w, message)
}

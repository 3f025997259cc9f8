package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"visearch/engine"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitAborted = 2 // participant quit before the end of the session
)

func init() {
	// SDL must be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, engine.ErrAborted) {
			os.Exit(ExitAborted)
		}
		os.Exit(ExitError)
	}
}

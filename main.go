package main

import (
	"runtime"

	"forma/cmd"
	applog "forma/internal/log"
	"forma/pkg/build"
)

func main() {
	if err := build.Stamped(); err != nil {
		applog.Debugf("Unstamped build: %v", err)
	}

	// One thread for the audio callback, one for the session and UI.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}

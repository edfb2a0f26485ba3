// Package profiling wires the demo process into Go's runtime profiler on
// request, exactly the way an operator debugging a stuck Engine host would
// want: CPU samples for a hot actor loop, heap snapshots for a leaking
// Session State Store.
package profiling

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

// InitCPUProfiling starts CPU profiling into the named file and returns a
// function that stops it; call the returned function before the process
// exits.
func InitCPUProfiling(path string) func() {
	logrus.WithField("path", path).Info("starting CPU profiling")

	file, err := os.Create(path)
	if err != nil {
		logrus.WithError(err).Fatal("could not create CPU profile file")
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		logrus.WithError(err).Fatal("could not start CPU profile")
	}

	return func() {
		pprof.StopCPUProfile()
		if err := file.Close(); err != nil {
			logrus.WithError(err).Warn("could not close CPU profile file")
		}
	}
}

// InitMemoryProfiling returns a function that writes a heap snapshot to
// path; call it before the process exits.
func InitMemoryProfiling(path string) func() {
	return func() {
		file, err := os.Create(path)
		if err != nil {
			logrus.WithError(err).Fatal("could not create memory profile file")
		}

		runtime.GC()
		if err := pprof.WriteHeapProfile(file); err != nil {
			logrus.WithError(err).Warn("could not write heap profile")
		}
		if err := file.Close(); err != nil {
			logrus.WithError(err).Warn("could not close memory profile file")
		}
	}
}

package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger builds the orchestrator's logger, matching the development
// vs. production split in lazydocker's pkg/log — except stderr is the
// only sink in either mode; a file sink would itself be a sidecar file,
// which spec §6 forbids.
func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})

	if debug || os.Getenv("DEBUG") == "TRUE" {
		log.SetLevel(logLevelFromEnv(logrus.DebugLevel))
		return log
	}
	log.SetLevel(logLevelFromEnv(logrus.WarnLevel))
	return log
}

func logLevelFromEnv(fallback logrus.Level) logrus.Level {
	str := os.Getenv("LOG_LEVEL")
	if str == "" {
		return fallback
	}
	level, err := logrus.ParseLevel(str)
	if err != nil {
		return fallback
	}
	return level
}

package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/logging"
)

// newCLILogger builds a logrus logger for a short-lived CLI invocation
// (config/doctor/plugin subcommands), routed to stderr exactly like the
// long-running serve logger so --verbose behaves consistently everywhere.
func newCLILogger() *logrus.Entry {
	level := "info"
	if verboseFlag {
		level = "debug"
	}
	if quietFlag {
		level = "warn"
	}
	l := logging.New(logging.Options{Level: level})
	return logging.ForComponent(l, "cli")
}

package ros

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger     *logrus.Logger
	defaultLoggerOnce sync.Once
)

// DefaultLogger returns the logger shared by nodes created without one.
// Its level is taken from ROSGO_LOG_LEVEL when set.
func DefaultLogger() *logrus.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger()
		if lvl, ok := os.LookupEnv("ROSGO_LOG_LEVEL"); ok {
			if level, err := logrus.ParseLevel(lvl); err == nil {
				defaultLogger.SetLevel(level)
			}
		}
	})
	return defaultLogger
}

// NewLogger returns a new instance of a logger
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

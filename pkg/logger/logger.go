package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func Init() {
	log = logrus.New()
	log.SetOutput(os.Stdout)

	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		log.SetLevel(logrus.DebugLevel)
	}
}

// get lazily initialises so library consumers that never call Init still log.
func get() *logrus.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Info(args ...interface{}) {
	get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Error(args ...interface{}) {
	get().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

func Debug(args ...interface{}) {
	get().Debug(args...)
}

func Warn(args ...interface{}) {
	get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Fatal(args ...interface{}) {
	get().Fatal(args...)
}

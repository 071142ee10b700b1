package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/2beens/blogstore/pkg"
)

const (
	logFileMaxSizeMB = 50
	logFileName      = "blogstore.log"
)

type LoggerSetupParams struct {
	// LogsPath is a log file, or a directory to put blogstore.log in.
	// Empty means stdout only.
	LogsPath         string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		setupSentry(params)
	}

	logrus.SetOutput(logOutput(params))
}

func setupSentry(params LoggerSetupParams) {
	if err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	}); err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("sentry hook added")
}

func logOutput(params LoggerSetupParams) io.Writer {
	logFile := logFilePath(params.LogsPath)
	if logFile == "" {
		logrus.Println("writing logs only to STDOUT")
		return os.Stdout
	}

	// rotated files are kept, no MaxBackups / MaxAge
	rotatingFile := &lumberjack.Logger{
		Filename:  logFile,
		MaxSize:   logFileMaxSizeMB,
		LocalTime: false,
		Compress:  true,
	}

	if !params.LogToStdout {
		return rotatingFile
	}
	logrus.Printf("writing logs to [%s] and STDOUT", logFile)
	return pkg.NewCombinedWriter(os.Stdout, rotatingFile)
}

func logFilePath(logsPath string) string {
	switch {
	case logsPath == "":
		return ""
	case strings.HasSuffix(logsPath, ".log"):
		return logsPath
	case strings.HasSuffix(logsPath, string(filepath.Separator)):
		return filepath.Join(logsPath, logFileName)
	}
	if stat, err := os.Stat(logsPath); err == nil && stat.IsDir() {
		return filepath.Join(logsPath, logFileName)
	}
	return logsPath + ".log"
}

// GetLevel parses the configured level, defaulting to trace.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.TraceLevel
	}
	return parsed
}

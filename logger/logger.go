package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	LOG_ENABLE                 = "ARRAY_HPC_LOGLEVEL"
	LOG_PATH                   = "ARRAY_HPC_LOGPATH"
	LOG_TIMEOUT                = "ARRAY_HPC_TIMEOUT"
	LOG_FILENAME               = "array-hpc.log"
	LOG_DEFAULT_TIMEOUT        = 24
	ARRAY_HPC_DEBUG_LOGGING    = 10
	ARRAY_HPC_INFO_LOGGING     = 20
	ARRAY_HPC_WARNING_LOGGING  = 30
	ARRAY_HPC_ERROR_LOGGING    = 40
	ARRAY_HPC_CRITICAL_LOGGING = 50
)

var (
	logOnce sync.Once
	logMu   sync.Mutex
	std     *log.Logger
)

// Log returns the shared logger, opening the log file on first use.
// Every line goes to stderr and to $ARRAY_HPC_LOGPATH/array-hpc.log.
func Log() *log.Logger {
	logOnce.Do(func() {
		std = log.New(openWriter(), "", log.LstdFlags)
	})
	return std
}

// SetOutput redirects the shared logger, mainly for tests.
func SetOutput(w io.Writer) {
	Log().SetOutput(w)
}

// SetTask tags every following line with the array id and task index.
// Concurrent tasks on one host each get their own log line prefix.
func SetTask(arrayID string, index int) {
	logMu.Lock()
	defer logMu.Unlock()
	Log().SetPrefix(fmt.Sprintf("[%s:%d] ", arrayID, index))
}

func openWriter() io.Writer {
	logPath := os.TempDir()
	if env := os.Getenv(LOG_PATH); len(env) > 0 {
		logPath = env
	}
	timeout := LOG_DEFAULT_TIMEOUT
	if env := os.Getenv(LOG_TIMEOUT); len(env) > 0 {
		if t, err := strconv.Atoi(env); err == nil {
			timeout = t
		}
	}
	logfile := filepath.Join(logPath, LOG_FILENAME)
	expire(logfile, timeout)
	f, err := os.OpenFile(logfile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("logger cannot open file: %v",
			fmt.Errorf("LogWriter: OpenFile: %w", err))
		return os.Stderr
	}
	// First line of the file is its creation time
	if stat, serr := f.Stat(); serr == nil && stat.Size() == 0 {
		f.WriteString(time.Now().Format(time.RFC3339) + "\n")
		f.Sync()
	}
	return io.MultiWriter(os.Stderr, f)
}

// expire removes logfile once it is older than timeout hours.
func expire(logfile string, timeout int) {
	f, err := os.Open(logfile)
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(f)
	scanner.Scan()
	f.Close()
	tag, terr := time.Parse(time.RFC3339, scanner.Text())
	if terr != nil || int(time.Since(tag).Hours()) > timeout {
		os.Remove(logfile)
	}
}

func LogLevel() int {
	if env, err := strconv.Atoi(os.Getenv(LOG_ENABLE)); err == nil {
		return env
	}
	return ARRAY_HPC_CRITICAL_LOGGING
}

func getLogLevel(level int) string {
	switch level {
	case ARRAY_HPC_DEBUG_LOGGING:
		return "DEBUG"
	case ARRAY_HPC_INFO_LOGGING:
		return "INFO"
	case ARRAY_HPC_WARNING_LOGGING:
		return "WARNING"
	case ARRAY_HPC_ERROR_LOGGING:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

func logObj(level int, name string, v interface{}) {
	if LogLevel() <= level {
		data, _ := json.MarshalIndent(v, "", " ")
		Log().Printf("%s %s:\n%s\n", getLogLevel(level), name, data)
	}
}

func logf(level int, format string, a ...interface{}) {
	if LogLevel() <= level {
		Log().Printf(getLogLevel(level)+" "+format, a...)
	}
}

func DebugObj(name string, v interface{}) { logObj(ARRAY_HPC_DEBUG_LOGGING, name, v) }

func DebugPrintf(format string, a ...interface{}) { logf(ARRAY_HPC_DEBUG_LOGGING, format, a...) }

func InfoObj(name string, v interface{}) { logObj(ARRAY_HPC_INFO_LOGGING, name, v) }

func InfoPrintf(format string, a ...interface{}) { logf(ARRAY_HPC_INFO_LOGGING, format, a...) }

func WarningObj(name string, v interface{}) { logObj(ARRAY_HPC_WARNING_LOGGING, name, v) }

func WarningPrintf(format string, a ...interface{}) {
	logf(ARRAY_HPC_WARNING_LOGGING, format, a...)
}

func ErrorObj(name string, v interface{}) { logObj(ARRAY_HPC_ERROR_LOGGING, name, v) }

func ErrorPrintf(format string, a ...interface{}) { logf(ARRAY_HPC_ERROR_LOGGING, format, a...) }

func CriticalObj(name string, v interface{}) { logObj(ARRAY_HPC_CRITICAL_LOGGING, name, v) }

func CriticalPrintf(format string, a ...interface{}) {
	logf(ARRAY_HPC_CRITICAL_LOGGING, format, a...)
}

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

// Leveled, colourised logger for the glitch engine.
// Non-primitive arguments are pretty-printed as JSON on their own lines so
// that prediction structs can be dumped straight into a log call.

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	WARN
	ERROR
	FATAL
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorOrange = "\033[38;5;208m"
)

const logFilePath = "/tmp/glitch.log"

type Logger struct {
	out    *log.Logger
	errOut *log.Logger
	level  LogLevel
}

var (
	defaultLogger *Logger
	showDateTime  bool
	logFile       *os.File
)

func init() {
	defaultLogger = NewLogger(INFO)
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{
		out:    log.New(os.Stdout, "", flags()),
		errOut: log.New(os.Stderr, "", flags()),
		level:  level,
	}
}

func flags() int {
	if showDateTime {
		return log.Ldate | log.Ltime
	}
	return 0
}

// SetLevel changes the minimum level emitted by the default logger
func SetLevel(level LogLevel) {
	defaultLogger.level = level
}

// SetShowDateTime toggles date/time prefixes on log lines
func SetShowDateTime(value bool) {
	showDateTime = value
	defaultLogger.out.SetFlags(flags())
	defaultLogger.errOut.SetFlags(flags())
}

// SetLogOutput sets the output destination for logs
// 'c' for console, 'f' for file, 'b' for both
func SetLogOutput(outputType rune) {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var infoWriter, errorWriter io.Writer

	switch outputType {
	case 'c':
		infoWriter = os.Stdout
		errorWriter = os.Stderr
	case 'f', 'b':
		var err error
		logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		if outputType == 'f' {
			infoWriter = logFile
			errorWriter = logFile
		} else {
			infoWriter = io.MultiWriter(os.Stdout, logFile)
			errorWriter = io.MultiWriter(os.Stderr, logFile)
		}
	default:
		fmt.Fprintf(os.Stderr, "Invalid log output type: %c\n", outputType)
		os.Exit(1)
	}

	defaultLogger.out = log.New(infoWriter, "", flags())
	defaultLogger.errOut = log.New(errorWriter, "", flags())
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) color() string {
	switch l {
	case DEBUG:
		return colorBlue
	case INFO:
		return colorGreen
	case INFORM:
		return colorPurple
	case WARN:
		return colorYellow
	case ERROR:
		return colorOrange
	case FATAL:
		return colorRed
	default:
		return colorReset
	}
}

func (l *Logger) log(level LogLevel, msg string, v ...any) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}
	file = filepath.Base(file)

	primitives, jsonObjects := processArgs(v...)
	if len(primitives) > 0 {
		msg = msg + " " + strings.Join(primitives, " ")
	}

	target := l.out
	if level >= ERROR {
		target = l.errOut
	}

	target.Printf("[%s] %s:%d: %s%s%s", level.String(), file, line, level.color(), msg, colorReset)
	for _, obj := range jsonObjects {
		target.Printf("[%s] %s:%d: %s%s%s", level.String(), file, line, level.color(), obj, colorReset)
	}
}

// processArgs stringifies primitive arguments and marshals everything else to
// indented JSON for separate-line output
func processArgs(args ...any) ([]string, []string) {
	var primitives []string
	var jsonObjects []string

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			primitives = append(primitives, "nil")
		case string:
			primitives = append(primitives, v)
		case error:
			primitives = append(primitives, v.Error())
		case bool:
			primitives = append(primitives, fmt.Sprintf("%v", v))
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			primitives = append(primitives, fmt.Sprintf("%d", v))
		case float32:
			primitives = append(primitives, fmt.Sprintf("%.2f", v))
		case float64:
			primitives = append(primitives, fmt.Sprintf("%.2f", v))
		default:
			data, err := json.MarshalIndent(arg, "", "  ")
			if err != nil {
				primitives = append(primitives, fmt.Sprintf("%v", arg))
				continue
			}
			primitives = append(primitives, fmt.Sprintf("[Object of type %s]", reflect.TypeOf(arg)))
			jsonObjects = append(jsonObjects, string(data))
		}
	}
	return primitives, jsonObjects
}

// Convenience functions using the default logger

func Debug(msg string, v ...any) {
	defaultLogger.log(DEBUG, msg, v...)
}

func Info(msg string, v ...any) {
	defaultLogger.log(INFO, msg, v...)
}

func Inform(msg string, v ...any) {
	defaultLogger.log(INFORM, msg, v...)
}

func Warn(msg string, v ...any) {
	defaultLogger.log(WARN, msg, v...)
}

func Error(msg string, v ...any) {
	defaultLogger.log(ERROR, msg, v...)
}

func Fatal(msg string, v ...any) {
	defaultLogger.log(FATAL, msg, v...)
	os.Exit(1)
}

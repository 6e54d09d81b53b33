package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}
	levelColors = map[Level]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
	}
	reset = "\033[0m"
)

type sink struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

// Logger 共享底层输出，带前缀的子 logger 通过 WithPrefix 派生
type Logger struct {
	s        *sink
	prefix   string
	useColor bool
}

var (
	std     *Logger
	stdOnce sync.Once
)

func newLogger(level Level, out io.Writer, useColor bool) *Logger {
	return &Logger{
		s:        &sink{level: level, out: out},
		useColor: useColor,
	}
}

// Init 初始化全局 logger，只有第一次调用生效
func Init(level string, useColor bool) {
	stdOnce.Do(func() {
		std = newLogger(parseLevel(level), os.Stderr, useColor)
	})
}

// InitWithFile 与 Init 相同，但输出到日志文件；文件打不开时回退到 stderr
func InitWithFile(level string, useColor bool, logFile string) {
	stdOnce.Do(func() {
		var out io.Writer = os.Stderr
		if logFile != "" {
			if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				out = file
				useColor = false
			}
		}
		std = newLogger(parseLevel(level), out, useColor)
	})
}

func Get() *Logger {
	if std == nil {
		Init("INFO", true)
	}
	return std
}

func SetLevel(level string) {
	s := Get().s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = parseLevel(level)
}

// SetOutput 替换输出目标，测试里用来捕获日志
func SetOutput(w io.Writer) {
	s := Get().s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func Debug(format string, v ...interface{}) { Get().log(DEBUG, format, v...) }

func Info(format string, v ...interface{}) { Get().log(INFO, format, v...) }

func Warn(format string, v ...interface{}) { Get().log(WARN, format, v...) }

func Error(format string, v ...interface{}) { Get().log(ERROR, format, v...) }

func Fatal(format string, v ...interface{}) {
	Get().log(ERROR, format, v...)
	os.Exit(1)
}

func (l *Logger) Debug(format string, v ...interface{}) { l.log(DEBUG, format, v...) }

func (l *Logger) Info(format string, v ...interface{}) { l.log(INFO, format, v...) }

func (l *Logger) Warn(format string, v ...interface{}) { l.log(WARN, format, v...) }

func (l *Logger) Error(format string, v ...interface{}) { l.log(ERROR, format, v...) }

func (l *Logger) log(level Level, format string, v ...interface{}) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if level < l.s.level {
		return
	}

	msg := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s", l.prefix, msg)
	}

	levelStr := levelNames[level]
	var tag string
	if l.useColor {
		tag = fmt.Sprintf("%s[%s]%s", levelColors[level], levelStr, reset)
	} else {
		tag = fmt.Sprintf("[%s]", levelStr)
	}

	fmt.Fprintf(l.s.out, "%s %s %s\n", time.Now().Format("2006/01/02 15:04:05"), tag, msg)
}

// WithPrefix 派生带组件前缀的 logger，级别随全局 logger 变化
func WithPrefix(prefix string) *Logger {
	parent := Get()
	return &Logger{
		s:        parent.s,
		prefix:   prefix,
		useColor: parent.useColor,
	}
}

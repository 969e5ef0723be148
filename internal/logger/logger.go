package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxBufferSize = 1000

var (
	instance *Logger
	once     sync.Once
)

type LogEntry struct {
	Timestamp time.Time
	Message   string
}

type Logger struct {
	file    *os.File
	logger  *log.Logger
	mu      sync.Mutex
	buffer  []LogEntry
	enabled bool
}

// Init opens logPath for appending. An empty path keeps logging in memory only.
func Init(logPath string) error {
	var initErr error
	once.Do(func() {
		if logPath == "" {
			return
		}

		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			initErr = fmt.Errorf("failed to open log file: %w", err)
			return
		}

		instance = &Logger{
			file:    file,
			logger:  log.New(file, "", log.LstdFlags),
			buffer:  make([]LogEntry, 0, maxBufferSize),
			enabled: true,
		}
	})

	EnsureInit()
	return initErr
}

func EnsureInit() {
	if instance == nil {
		instance = &Logger{
			buffer:  make([]LogEntry, 0, maxBufferSize),
			enabled: false,
		}
	}
}

func Close() error {
	if instance != nil && instance.file != nil {
		return instance.file.Close()
	}
	return nil
}

func addToBuffer(message string) {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	}

	if len(instance.buffer) >= maxBufferSize {
		instance.buffer = instance.buffer[1:]
	}
	instance.buffer = append(instance.buffer, entry)
}

func write(message string) {
	addToBuffer(message)

	if instance != nil && instance.enabled && instance.logger != nil {
		instance.mu.Lock()
		defer instance.mu.Unlock()
		instance.logger.Println(message)
	}
}

func GetLogs() []LogEntry {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()

	logs := make([]LogEntry, len(instance.buffer))
	copy(logs, instance.buffer)
	return logs
}

func LogFileOpen(path string) {
	write(fmt.Sprintf("[FILE_OPEN] %s", path))
}

func LogFileWrite(path string) {
	write(fmt.Sprintf("[FILE_WRITE] %s", path))
}

func LogError(operation, target string, err error) {
	write(fmt.Sprintf("[ERROR] %s: %s - %v", operation, target, err))
}

// LogTransfer records a finished upload or download.
func LogTransfer(id, direction, from, to string, bytes int64, elapsed time.Duration) {
	write(fmt.Sprintf("[TRANSFER] %s %s %s -> %s (%d bytes in %v)", id, strings.ToUpper(direction), from, to, bytes, elapsed.Round(time.Millisecond)))
}

func Log(message string, args ...interface{}) {
	write(fmt.Sprintf("[INFO] "+message, args...))
}

// Redact keeps the first four characters of a secret.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

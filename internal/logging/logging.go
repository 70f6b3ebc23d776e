package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

func LogOutcome(concurrency, repetition int, promptID string, success bool, seconds float64, detail string) {
	msg := buildOutcomeMessage(concurrency, repetition, promptID, success, seconds, detail)
	log.Println(msg)
}

func buildOutcomeMessage(concurrency, repetition int, promptID string, success bool, seconds float64, detail string) string {
	status := "ok"
	if !success {
		status = "fail"
	}
	prompt := strings.TrimSpace(promptID)
	if prompt == "" {
		prompt = "unknown"
	}
	parts := []string{fmt.Sprintf("[c=%d rep=%d]", concurrency, repetition)}
	parts = append(parts, fmt.Sprintf("prompt=%s", prompt))
	parts = append(parts, fmt.Sprintf("status=%s", status))
	parts = append(parts, fmt.Sprintf("duration=%.3fs", seconds))
	if detail = strings.TrimSpace(detail); detail != "" {
		parts = append(parts, fmt.Sprintf("detail=%s", detail))
	}
	return strings.Join(parts, " ")
}

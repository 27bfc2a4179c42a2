// Package logger points the standard logger at stdout and, optionally, a rotating file.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/config"
)

// Writer returns the destination for log output. With no file configured
// it is stdout; otherwise stdout teed into a lumberjack rotating file.
func Writer(cfg config.LogConfig) (io.Writer, error) {
	if cfg.File == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return io.MultiWriter(os.Stdout, rotating), nil
}

// Setup configures the standard logger and returns the writer so other
// loggers (the HTTP access log) can share it.
func Setup(cfg config.LogConfig) (io.Writer, error) {
	w, err := Writer(cfg)
	if err != nil {
		return nil, err
	}

	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if cfg.File != "" {
		log.Printf("logging initialized: writing to %s", cfg.File)
	}
	return w, nil
}

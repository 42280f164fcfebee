package logger

import (
	"bufio"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits the size and history of a log file. Zero values use the
// lumberjack defaults (100 MB, keep everything).
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// SafeFileWriter is a buffered, mutex-guarded, rotating file sink that
// flushes on a timer. It implements zapcore.WriteSyncer.
type SafeFileWriter struct {
	mu       sync.Mutex
	writer   *bufio.Writer
	file     *lumberjack.Logger
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
	filePath string

	writes  uint64
	flushes uint64
}

// NewSafeFileWriter appends to filePath, creating its directory on the first
// write and rotating it per rot.
func NewSafeFileWriter(filePath string, flushInterval time.Duration, rot Rotation, logger *zap.Logger) (*SafeFileWriter, error) {
	if filePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	file := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}

	w := &SafeFileWriter{
		writer:   bufio.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger,
		filePath: filePath,
	}
	go w.flushLoop()
	return w, nil
}

func (w *SafeFileWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	w.writes++
	return n, nil
}

// Sync hands buffered data to the file.
func (w *SafeFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *SafeFileWriter) flushLocked() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	w.flushes++
	return nil
}

func (w *SafeFileWriter) flushLoop() {
	for {
		select {
		case <-w.ticker.C:
			if err := w.Sync(); err != nil {
				w.logger.Error("Periodic flush failed", zap.String("file", w.filePath), zap.Error(err))
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the flush timer, flushes and closes the file. It is safe to
// call more than once.
func (w *SafeFileWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.ticker.Stop()

		w.mu.Lock()
		defer w.mu.Unlock()
		if ferr := w.writer.Flush(); ferr != nil {
			err = fmt.Errorf("failed to flush on close: %w", ferr)
			return
		}
		if cerr := w.file.Close(); cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	})
	return err
}

// Stats returns the number of writes and flushes so far.
func (w *SafeFileWriter) Stats() (writes, flushes uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes, w.flushes
}

// Rotate closes the current file and starts a new one.
func (w *SafeFileWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(); err != nil {
		return err
	}
	return w.file.Rotate()
}

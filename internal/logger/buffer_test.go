package logger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogBufferKeepsNewestEntries(t *testing.T) {
	buf := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		buf.Add("info", fmt.Sprintf("msg %d", i), nil)
	}

	logs := buf.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "msg 2", logs[0].Message)
	assert.Equal(t, "msg 4", logs[2].Message)

	last := buf.GetRecentLogs(2)
	require.Len(t, last, 2)
	assert.Equal(t, "msg 3", last[0].Message)
	assert.Equal(t, "msg 4", last[1].Message)
	assert.EqualValues(t, 5, buf.Total())
}

func TestLogBufferBeforeWrap(t *testing.T) {
	buf := NewLogBuffer(10)
	buf.Add("warn", "one", nil)
	buf.Add("info", "two", nil)

	logs := buf.GetRecentLogs(5)
	require.Len(t, logs, 2)
	assert.Equal(t, "one", logs[0].Message)
	assert.Equal(t, "two", logs[1].Message)
	assert.Empty(t, NewLogBuffer(4).GetRecentLogs(0))
}

func TestTUILoggerWritesToBuffer(t *testing.T) {
	buf := NewLogBuffer(16)
	log, err := CreateTUILoggerWithBuffer(false, buf)
	require.NoError(t, err)

	log.Warn("Price source failed", zap.String("source", "binance"))
	log.Debug("dropped")

	logs := buf.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "warn", logs[0].Level)
	assert.Equal(t, "Price source failed", logs[0].Message)
	assert.Equal(t, "binance", logs[0].Fields["source"])
	assert.False(t, logs[0].Timestamp.IsZero())

	_, err = CreateTUILoggerWithBuffer(false, nil)
	assert.Error(t, err)
}

func TestLogBufferConcurrentAccess(t *testing.T) {
	buf := NewLogBuffer(100)
	log, err := CreateTUILoggerWithBuffer(true, buf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Info("tick", zap.Int("goroutine", id), zap.Int("iteration", j))
				_ = buf.GetRecentLogs(5)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1000, buf.Total())
	assert.Len(t, buf.GetRecentLogs(0), 100)
}

func TestLogBufferKeepsPlainLines(t *testing.T) {
	buf := NewLogBuffer(4)
	n, err := buf.Write([]byte("not json\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	logs := buf.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "not json", logs[0].Message)
}

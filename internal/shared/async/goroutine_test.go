package async

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestRunDeliversResult(t *testing.T) {
	sentinel := errors.New("listen failed")

	err := <-Run(nil, "ok", func() error { return nil })
	assert.NoError(t, err)

	err = <-Run(nil, "fail", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestRunConvertsPanicToError(t *testing.T) {
	logger := &recordingLogger{}

	err := <-Run(logger, "server.listen", func() error { panic("bad handler") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.listen panicked: bad handler")
	assert.True(t, logger.contains("goroutine panic [server.listen]"))
}

func TestRunPanicWithNilLogger(t *testing.T) {
	err := <-Run(nil, "nil-logger", func() error { panic("boom") })
	assert.EqualError(t, err, "nil-logger panicked: boom")
}

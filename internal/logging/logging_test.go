package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SuppressesDebugAndInfo_When_NotDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug("noisy")
	log.Info("chatty")
	log.Warn("element skipped")

	out := buf.String()
	assert.NotContains(t, out, "noisy")
	assert.NotContains(t, out, "chatty")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "tabfy")
	assert.Contains(t, out, "element skipped")
}

func TestNew_WritesDebug_When_Debug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, true).Debug("matched")

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "matched")
	assert.Contains(t, buf.String(), "logging_test.go", "caller is recorded in debug mode")
}

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(buf *bytes.Buffer) string {
	return ansi.ReplaceAllString(buf.String(), "")
}

func TestPrettyHandler_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "info")

	log.Info("login", "email", "ada@example.com", "password", "hunter22", "refreshToken", "eyJhbGciOi")
	out := plain(&buf)

	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "password="+redacted)
	assert.Contains(t, out, "refreshToken="+redacted)
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "eyJhbGciOi")
}

func TestPrettyHandler_GroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "", "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WithGroup("req").Warn("slow", slog.Group("auth", slog.String("cookie", "abc")), "path", "/x")
	out := plain(&buf)
	assert.Contains(t, out, "req.path=/x")
	assert.Contains(t, out, "req.auth.cookie="+redacted)
	assert.NotContains(t, out, "=abc")
}

func TestNew_JSONRedacts(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "JSON", "debug")

	log.Debug("config", "access_token_secret", "s3cr3t", "port", "8080")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, redacted, line["access_token_secret"])
	assert.Equal(t, "8080", line["port"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

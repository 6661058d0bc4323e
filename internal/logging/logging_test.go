package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFileName(t *testing.T) {
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "badges-20240309.log", FileName("badges", day))
	assert.Equal(t, "access-team-20240309.log", FileName("access team", day))
	assert.Equal(t, "orgops-20240309.log", FileName("", day))
}

func TestSetup(t *testing.T) {
	fs := afero.NewMemMapFs()
	var stderr bytes.Buffer

	logger, closeLog, err := Setup(fs, "logs", "badges", slog.LevelInfo, &stderr)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("repository updated", "repo", "acme/app")
	require.NoError(t, closeLog())

	path := filepath.Join("logs", FileName("badges", time.Now()))
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.True(t, exists)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `msg="repository updated"`)
	assert.Contains(t, string(content), "repo=acme/app")
	assert.Contains(t, string(content), "command=badges")
	assert.NotContains(t, string(content), "hidden")
	assert.Equal(t, string(content), stderr.String())
}

func TestSetup_Appends(t *testing.T) {
	fs := afero.NewMemMapFs()

	for _, msg := range []string{"first", "second"} {
		logger, closeLog, err := Setup(fs, "logs", "maintainers", slog.LevelInfo, nil)
		require.NoError(t, err)
		logger.Info(msg)
		require.NoError(t, closeLog())
	}

	content, err := afero.ReadFile(fs, filepath.Join("logs", FileName("maintainers", time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(content), "msg=first")
	assert.Contains(t, string(content), "msg=second")
}

func TestSetup_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, _, err := Setup(fs, "logs", "badges", slog.LevelInfo, nil)
	assert.ErrorContains(t, err, "creating log directory")
}

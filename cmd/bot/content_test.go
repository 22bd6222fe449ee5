package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"quest-bot/internal/models"
	"quest-bot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempPaths(t *testing.T) contentPaths {
	dir := t.TempDir()
	return contentPaths{
		ContentDir:       filepath.Join(dir, "quest"),
		MessagesFile:     filepath.Join(dir, "messages.yml"),
		AchievementsFile: filepath.Join(dir, "achievements.yml"),
	}
}

func TestSeedAndLoadContent(t *testing.T) {
	paths := tempPaths(t)
	require.NoError(t, seedContent(paths, zap.NewNop()))
	assert.FileExists(t, paths.MessagesFile)
	assert.FileExists(t, paths.AchievementsFile)
	assert.FileExists(t, filepath.Join(paths.ContentDir, "quest.yml"))

	loaded, err := loadContent(paths, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, loaded.Branches.Validate().OK())
	_, ok := loaded.Branches.Get(models.StartBranchID)
	assert.True(t, ok)
	assert.NotEqual(t, service.MsgMenu, loaded.Messages.Get(service.MsgMenu))
}

func TestSeedKeepsExistingFiles(t *testing.T) {
	paths := tempPaths(t)
	require.NoError(t, os.WriteFile(paths.MessagesFile, []byte("wait: \"Свой текст\"\n"), 0o644))
	require.NoError(t, seedContent(paths, zap.NewNop()))

	loaded, err := loadContent(paths, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Свой текст", loaded.Messages.Get(service.MsgWait))
	// Остальные ключи берутся из встроенного файла.
	assert.NotEqual(t, service.MsgMenu, loaded.Messages.Get(service.MsgMenu))
}

func TestValidateCommand(t *testing.T) {
	paths := tempPaths(t)
	require.NoError(t, seedContent(paths, zap.NewNop()))

	run := func() (string, error) {
		cmd := newValidateCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{
			"--content-dir", paths.ContentDir,
			"--messages", paths.MessagesFile,
			"--achievements", paths.AchievementsFile,
		})
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run()
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	broken := "broken:\n  lines: [\"тупик\"]\n  answer-options:\n    - text: \"в никуда\"\n      link: nowhere\n"
	require.NoError(t, os.WriteFile(filepath.Join(paths.ContentDir, "broken.yml"), []byte(broken), 0o644))

	out, err = run()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBranchNotFound)
	assert.Contains(t, out, "nowhere")
}

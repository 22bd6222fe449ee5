package main

import (
	"fmt"
	"io/fs"

	"quest-bot/configs"
	"quest-bot/internal/content"
	"quest-bot/internal/quest"
	"quest-bot/internal/service"
	"quest-bot/shared/utils"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// contentPaths - расположение файлов контента на диске.
type contentPaths struct {
	ContentDir       string
	MessagesFile     string
	AchievementsFile string
}

// questContent - все, что читается из YAML при старте.
type questContent struct {
	Catalog  *quest.AchievementCatalog
	Messages *service.Messages
	Branches *quest.BranchContainer
}

// seedContent копирует встроенные файлы туда, где их еще нет.
func seedContent(paths contentPaths, logger *zap.Logger) error {
	var created []string
	for _, f := range []struct{ name, dest string }{
		{configs.MessagesFile, paths.MessagesFile},
		{configs.AchievementsFile, paths.AchievementsFile},
	} {
		ok, err := content.SeedFile(configs.FS, f.name, f.dest)
		if err != nil {
			return err
		}
		if ok {
			created = append(created, f.dest)
		}
	}
	seeded, err := content.SeedDir(configs.FS, configs.QuestDir, paths.ContentDir)
	if err != nil {
		return err
	}
	created = append(created, seeded...)
	if len(created) > 0 {
		logger.Info("Default content seeded", zap.Strings("files", created))
	}
	return nil
}

// loadContent читает тексты, достижения и ветки квеста.
func loadContent(paths contentPaths, logger *zap.Logger) (*questContent, error) {
	formatter := utils.NewHTMLFormatter()

	messages, err := loadMessages(paths.MessagesFile, logger)
	if err != nil {
		return nil, err
	}

	achievementsRoot, err := content.LoadFile(paths.AchievementsFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки достижений: %w", err)
	}
	catalog, err := quest.LoadAchievementCatalog(achievementsRoot, formatter)
	for _, e := range multierr.Errors(err) {
		logger.Warn("Achievement skipped", zap.Error(e))
	}

	branches := quest.NewBranchContainer(catalog, formatter, logger)
	if err := branches.LoadDir(paths.ContentDir); err != nil {
		return nil, err
	}
	logger.Info("Quest content loaded",
		zap.Int("branches", branches.Len()),
		zap.Int("achievements", len(catalog.All())),
	)

	return &questContent{Catalog: catalog, Messages: messages, Branches: branches}, nil
}

// loadMessages читает messages.yml. Отсутствующие ключи берутся из встроенного файла.
func loadMessages(path string, logger *zap.Logger) (*service.Messages, error) {
	data, err := fs.ReadFile(configs.FS, configs.MessagesFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения встроенных сообщений: %w", err)
	}
	defaults, err := content.Parse(data, configs.MessagesFile)
	if err != nil {
		return nil, err
	}

	section, err := content.LoadFile(path)
	if err != nil {
		logger.Warn("Messages file unavailable, using built-in texts", zap.String("file", path), zap.Error(err))
		return service.NewMessages(defaults), nil
	}
	return service.NewMessages(section.WithFallback(defaults)), nil
}

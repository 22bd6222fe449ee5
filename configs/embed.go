// Package configs хранит тексты и квест по умолчанию, которые копируются в рабочие каталоги при первом запуске.
package configs

import "embed"

// FS - встроенные файлы контента.
//
//go:embed messages.yml achievements.yml quest/*.yml
var FS embed.FS

const (
	MessagesFile     = "messages.yml"
	AchievementsFile = "achievements.yml"
	QuestDir         = "quest"
)

package quest

import (
	"fmt"

	"quest-bot/internal/content"
	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"
	"quest-bot/shared/utils"

	"go.uber.org/multierr"
)

// AchievementCatalog - справочник достижений, загруженный из achievements.yml.
// Формат: секция на достижение, ключ - идентификатор; поля name и description.
type AchievementCatalog struct {
	items map[string]models.Achievement
	order []string
}

var _ interfaces.AchievementCatalog = (*AchievementCatalog)(nil)

// NewAchievementCatalog собирает каталог из готового списка.
func NewAchievementCatalog(achievements ...models.Achievement) *AchievementCatalog {
	c := &AchievementCatalog{items: make(map[string]models.Achievement, len(achievements))}
	for _, a := range achievements {
		c.add(a)
	}
	return c
}

// LoadAchievementCatalog читает каталог из секции. Записи без name пропускаются,
// их ошибки возвращаются вместе с частично заполненным каталогом.
func LoadAchievementCatalog(root *content.Section, formatter *utils.HTMLFormatter) (*AchievementCatalog, error) {
	c := NewAchievementCatalog()
	var errs error
	for _, section := range root.Children() {
		name, err := section.String("name")
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("достижение '%s' в %s: %w: %v", section.Name(), root.Source(), models.ErrMalformedSection, err))
			continue
		}
		c.add(models.Achievement{
			ID:          section.Name(),
			Name:        formatter.Format(name),
			Description: formatter.Format(section.StringOr("description", "")),
		})
	}
	return c, errs
}

func (c *AchievementCatalog) add(a models.Achievement) {
	if _, exists := c.items[a.ID]; !exists {
		c.order = append(c.order, a.ID)
	}
	c.items[a.ID] = a
}

// Resolve ищет достижение по идентификатору.
func (c *AchievementCatalog) Resolve(id string) (models.Achievement, bool) {
	a, ok := c.items[id]
	return a, ok
}

// All возвращает достижения в порядке файла.
func (c *AchievementCatalog) All() []models.Achievement {
	out := make([]models.Achievement, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

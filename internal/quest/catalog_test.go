package quest

import (
	"testing"

	"quest-bot/internal/content"
	"quest-bot/internal/models"
	"quest-bot/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAchievementCatalog(t *testing.T) {
	doc := `
explorer:
  name: "<b>Исследователь</b>"
  description: "Нашел сокровище"
broken:
  description: "без имени"
coward:
  name: "Трус"
`
	root, err := content.Parse([]byte(doc), "achievements.yml")
	require.NoError(t, err)

	catalog, err := LoadAchievementCatalog(root, utils.NewHTMLFormatter())
	assert.ErrorIs(t, err, models.ErrMalformedSection)
	require.NotNil(t, catalog)

	a, ok := catalog.Resolve("explorer")
	require.True(t, ok)
	assert.Equal(t, "<b>Исследователь</b>", a.Name)
	assert.Equal(t, "Нашел сокровище", a.Description)

	_, ok = catalog.Resolve("broken")
	assert.False(t, ok)

	all := catalog.All()
	require.Len(t, all, 2)
	assert.Equal(t, "explorer", all[0].ID)
	assert.Equal(t, "coward", all[1].ID)
	assert.Empty(t, all[1].Description)
}

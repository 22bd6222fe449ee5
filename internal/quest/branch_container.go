package quest

import (
	"fmt"
	"sort"
	"strings"

	"quest-bot/internal/content"
	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"
	"quest-bot/shared/utils"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	keyLines         = "lines"
	keyEnding        = "ending"
	keyAchievement   = "achievement"
	keyAnswerOptions = "answer-options"
	keyOptionText    = "text"
	keyOptionLink    = "link"
)

// BranchContainer хранит граф веток квеста.
// Все Load* вызываются до начала работы бота; после этого контейнер только читается
// и не требует блокировок.
type BranchContainer struct {
	catalog   interfaces.AchievementCatalog
	formatter *utils.HTMLFormatter
	logger    *zap.Logger

	branches map[string]*models.Branch
}

var _ interfaces.BranchSource = (*BranchContainer)(nil)

// NewBranchContainer создает пустой контейнер.
func NewBranchContainer(catalog interfaces.AchievementCatalog, formatter *utils.HTMLFormatter, logger *zap.Logger) *BranchContainer {
	return &BranchContainer{
		catalog:   catalog,
		formatter: formatter,
		logger:    logger.Named("BranchContainer"),
		branches:  make(map[string]*models.Branch),
	}
}

// LoadDir загружает все файлы контента каталога.
// Нечитаемые и некорректные файлы логируются и пропускаются.
func (c *BranchContainer) LoadDir(dir string) error {
	files, err := content.LoadDir(dir)
	if len(files) == 0 && err != nil {
		return fmt.Errorf("ошибка загрузки контента из %s: %w", dir, err)
	}
	for _, fileErr := range multierr.Errors(err) {
		c.logger.Error("Failed to read content file, skipping", zap.Error(fileErr))
	}
	c.Load(files...)
	return nil
}

// Load добавляет ветки из корневых секций файлов. Файл загружается целиком или не загружается:
// любая ошибка в одной из его веток отбрасывает весь файл.
func (c *BranchContainer) Load(files ...*content.Section) {
	for _, file := range files {
		log := c.logger.With(zap.String("file", file.Source()))
		branches, err := c.parseFile(file)
		if err != nil {
			log.Error("Content file rejected", zap.Error(err))
			continue
		}
		for _, b := range branches {
			c.branches[b.ID] = b
		}
		log.Info("Content file loaded", zap.Int("branches", len(branches)))
	}
}

func (c *BranchContainer) parseFile(file *content.Section) ([]*models.Branch, error) {
	var branches []*models.Branch
	seen := make(map[string]struct{})
	for _, section := range file.Children() {
		id := section.Name()
		if _, dup := c.branches[id]; dup {
			return nil, fmt.Errorf("ветка '%s': %w: duplicate branch id", id, models.ErrMalformedSection)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("ветка '%s': %w: duplicate branch id", id, models.ErrMalformedSection)
		}
		b, err := c.parseBranch(section)
		if err != nil {
			return nil, fmt.Errorf("ветка '%s': %w", id, err)
		}
		b.Source = file.Source()
		seen[id] = struct{}{}
		branches = append(branches, b)
	}
	return branches, nil
}

func (c *BranchContainer) parseBranch(section *content.Section) (*models.Branch, error) {
	lines, err := section.Strings(keyLines)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedSection, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: lines are empty", models.ErrMalformedSection)
	}

	ending := false
	if section.Has(keyEnding) {
		ending, err = section.Bool(keyEnding)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedSection, err)
		}
	}

	var achievement *models.Achievement
	if section.Has(keyAchievement) {
		achievementID, err := section.String(keyAchievement)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedSection, err)
		}
		resolved, ok := c.catalog.Resolve(achievementID)
		if !ok {
			return nil, fmt.Errorf("%w: '%s'", models.ErrAchievementNotFound, achievementID)
		}
		achievement = &resolved
	}

	b := &models.Branch{
		ID:          section.Name(),
		Lines:       c.formatter.FormatAll(lines),
		Kind:        models.KindFor(ending, achievement != nil),
		Achievement: achievement,
	}
	if ending {
		return b, nil
	}

	b.AnswerOptions, err = c.parseAnswerOptions(section)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *BranchContainer) parseAnswerOptions(section *content.Section) ([]models.AnswerOption, error) {
	items, err := section.Sections(keyAnswerOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedSection, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: answer-options are empty", models.ErrMalformedSection)
	}
	options := make([]models.AnswerOption, 0, len(items))
	for _, item := range items {
		text, err := item.String(keyOptionText)
		if err != nil {
			return nil, fmt.Errorf("%w: option %s: %v", models.ErrMalformedSection, item.Name(), err)
		}
		link, err := item.String(keyOptionLink)
		if err != nil || strings.TrimSpace(link) == "" {
			return nil, fmt.Errorf("%w: option %s: link is missing", models.ErrMalformedSection, item.Name())
		}
		options = append(options, models.AnswerOption{
			Text:         c.formatter.Format(text),
			NextBranchID: strings.TrimSpace(link),
		})
	}
	return options, nil
}

// Get возвращает ветку по идентификатору.
func (c *BranchContainer) Get(id string) (*models.Branch, bool) {
	b, ok := c.branches[id]
	return b, ok
}

// Len - число загруженных веток.
func (c *BranchContainer) Len() int {
	return len(c.branches)
}

// IDs возвращает идентификаторы веток в алфавитном порядке.
func (c *BranchContainer) IDs() []string {
	ids := make([]string, 0, len(c.branches))
	for id := range c.branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DanglingLink - вариант ответа, ссылающийся на несуществующую ветку.
type DanglingLink struct {
	BranchID     string `json:"branch_id"`
	Option       int    `json:"option"`
	NextBranchID string `json:"next_branch_id"`
	Source       string `json:"source"`
}

// ValidationReport - результат проверки связности графа.
type ValidationReport struct {
	MissingStart  bool           `json:"missing_start"`
	DanglingLinks []DanglingLink `json:"dangling_links,omitempty"`
}

// OK - проблем не найдено.
func (r ValidationReport) OK() bool {
	return !r.MissingStart && len(r.DanglingLinks) == 0
}

// Err объединяет найденные проблемы в одну ошибку или возвращает nil.
func (r ValidationReport) Err() error {
	var errs error
	if r.MissingStart {
		errs = multierr.Append(errs, fmt.Errorf("%w: '%s'", models.ErrBranchNotFound, models.StartBranchID))
	}
	for _, l := range r.DanglingLinks {
		errs = multierr.Append(errs, fmt.Errorf("%s: ветка '%s', вариант %d ссылается на '%s': %w",
			l.Source, l.BranchID, l.Option, l.NextBranchID, models.ErrBranchNotFound))
	}
	return errs
}

// Validate проверяет наличие стартовой ветки и что все ссылки вариантов ответа разрешаются.
func (c *BranchContainer) Validate() ValidationReport {
	var report ValidationReport
	if _, ok := c.branches[models.StartBranchID]; !ok {
		report.MissingStart = true
	}
	for _, id := range c.IDs() {
		b := c.branches[id]
		for i, opt := range b.AnswerOptions {
			if _, ok := c.branches[opt.NextBranchID]; !ok {
				report.DanglingLinks = append(report.DanglingLinks, DanglingLink{
					BranchID:     id,
					Option:       i + 1,
					NextBranchID: opt.NextBranchID,
					Source:       b.Source,
				})
			}
		}
	}
	return report
}

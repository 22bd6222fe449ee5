package models

// StartBranchID - ветка, с которой начинается квест без сохранения.
const StartBranchID = "start"

// BranchKind - вариант ветки.
type BranchKind string

const (
	BranchCommon            BranchKind = "common"
	BranchAchievement       BranchKind = "achievement"
	BranchEnding            BranchKind = "ending"
	BranchEndingAchievement BranchKind = "ending_achievement"
)

// AnswerOption - вариант ответа и ссылка на следующую ветку.
type AnswerOption struct {
	Text         string `json:"text"`
	NextBranchID string `json:"next_branch_id"`
}

// Branch - узел графа квеста. После загрузки не изменяется.
type Branch struct {
	ID            string         `json:"id"`
	Lines         []string       `json:"lines"`
	Kind          BranchKind     `json:"kind"`
	AnswerOptions []AnswerOption `json:"answer_options,omitempty"`
	// Achievement заполнен только для BranchAchievement и BranchEndingAchievement.
	Achievement *Achievement `json:"achievement,omitempty"`
	// Source - файл, из которого загружена ветка.
	Source string `json:"source,omitempty"`
}

// KindFor выбирает вариант ветки по двум признакам.
func KindFor(ending, hasAchievement bool) BranchKind {
	switch {
	case ending && hasAchievement:
		return BranchEndingAchievement
	case ending:
		return BranchEnding
	case hasAchievement:
		return BranchAchievement
	default:
		return BranchCommon
	}
}

// IsTerminal - ветка завершает сессию.
func (b *Branch) IsTerminal() bool {
	return b.Kind == BranchEnding || b.Kind == BranchEndingAchievement
}

// HasOptions - после доставки ветки пользователю предлагаются варианты ответа.
func (b *Branch) HasOptions() bool {
	return !b.IsTerminal()
}

// GrantsAchievement - ветка выдает достижение.
func (b *Branch) GrantsAchievement() bool {
	return b.Achievement != nil && (b.Kind == BranchAchievement || b.Kind == BranchEndingAchievement)
}

// AnswerOption возвращает вариант ответа по номеру, начиная с 1.
func (b *Branch) AnswerOption(number int) (AnswerOption, bool) {
	if !b.HasOptions() || number < 1 || number > len(b.AnswerOptions) {
		return AnswerOption{}, false
	}
	return b.AnswerOptions[number-1], true
}

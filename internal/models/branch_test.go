package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFor(t *testing.T) {
	assert.Equal(t, BranchCommon, KindFor(false, false))
	assert.Equal(t, BranchAchievement, KindFor(false, true))
	assert.Equal(t, BranchEnding, KindFor(true, false))
	assert.Equal(t, BranchEndingAchievement, KindFor(true, true))
}

func TestBranch_Properties(t *testing.T) {
	ach := &Achievement{ID: "explorer"}
	tests := []struct {
		name     string
		branch   Branch
		terminal bool
		options  bool
		grants   bool
	}{
		{name: "Common", branch: Branch{Kind: BranchCommon}, options: true},
		{name: "Achievement", branch: Branch{Kind: BranchAchievement, Achievement: ach}, options: true, grants: true},
		{name: "Ending", branch: Branch{Kind: BranchEnding}, terminal: true},
		{name: "Ending achievement", branch: Branch{Kind: BranchEndingAchievement, Achievement: ach}, terminal: true, grants: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.branch.IsTerminal())
			assert.Equal(t, tt.options, tt.branch.HasOptions())
			assert.Equal(t, tt.grants, tt.branch.GrantsAchievement())
		})
	}
}

func TestBranch_AnswerOption(t *testing.T) {
	b := Branch{
		Kind: BranchCommon,
		AnswerOptions: []AnswerOption{
			{Text: "A", NextBranchID: "x"},
			{Text: "B", NextBranchID: "y"},
		},
	}

	opt, ok := b.AnswerOption(2)
	assert.True(t, ok)
	assert.Equal(t, "y", opt.NextBranchID)

	for _, n := range []int{0, 3, -1} {
		_, ok := b.AnswerOption(n)
		assert.False(t, ok, "number %d", n)
	}

	ending := Branch{Kind: BranchEnding, AnswerOptions: b.AnswerOptions}
	_, ok = ending.AnswerOption(1)
	assert.False(t, ok)
}

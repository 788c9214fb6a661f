package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"raidbot/internal/models"
)

func TestScoreTable(t *testing.T) {
	table := DefaultScoreTable()

	tests := []struct {
		name     string
		action   models.ActionType
		position int
		history  int
		want     ScoreResult
	}{
		{
			name:     "like at position 3 gets the top speed bonus",
			action:   models.ActionTypeLike,
			position: 3,
			history:  0,
			want:     ScoreResult{Base: 1, Multiplier: 3.0, Total: 3},
		},
		{
			name:     "retweet at position 5 is still top tier",
			action:   models.ActionTypeRetweet,
			position: 5,
			history:  0,
			want:     ScoreResult{Base: 2, Multiplier: 3.0, Total: 6},
		},
		{
			name:     "reply at position 6 drops to the second tier",
			action:   models.ActionTypeReply,
			position: 6,
			history:  0,
			want:     ScoreResult{Base: 3, Multiplier: 2.0, Total: 6},
		},
		{
			name:     "quote at position 11 gets 1.5x",
			action:   models.ActionTypeQuote,
			position: 11,
			history:  0,
			want:     ScoreResult{Base: 5, Multiplier: 1.5, Total: 8},
		},
		{
			name:     "quote at position 30 has no speed bonus",
			action:   models.ActionTypeQuote,
			position: 30,
			history:  0,
			want:     ScoreResult{Base: 5, Multiplier: 1.0, Total: 5},
		},
		{
			name:     "loyalty bonus stacks on the speed bonus",
			action:   models.ActionTypeLike,
			position: 2,
			history:  101,
			want:     ScoreResult{Base: 1, Multiplier: 3.6, Total: 4},
		},
		{
			name:     "exactly at the loyalty threshold gets nothing extra",
			action:   models.ActionTypeLike,
			position: 30,
			history:  100,
			want:     ScoreResult{Base: 1, Multiplier: 1.0, Total: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Score(tt.action, tt.position, tt.history)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Score() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	table := DefaultScoreTable()
	first := table.Score(models.ActionTypeQuote, 7, 50)
	for i := 0; i < 10; i++ {
		if got := table.Score(models.ActionTypeQuote, 7, 50); got != first {
			t.Fatalf("Score() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestApplyProphetBonus(t *testing.T) {
	score := ScoreResult{Base: 1, Multiplier: 3.0, Total: 3}

	doubled := applyProphetBonus(score, 200)
	if doubled.Total != 6 {
		t.Errorf("Total = %d, want 6", doubled.Total)
	}
	if doubled.Multiplier != 6.0 {
		t.Errorf("Multiplier = %f, want 6.0", doubled.Multiplier)
	}

	// 100 or less means no bonus
	same := applyProphetBonus(score, 100)
	if diff := cmp.Diff(score, same); diff != "" {
		t.Errorf("applyProphetBonus(100) mismatch (-want +got):\n%s", diff)
	}
}

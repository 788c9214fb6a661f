package services

import (
	"math"

	"raidbot/internal/models"
)

// ScoreTable maps action types to base points. Scoring is deterministic and
// side-effect-free; everything stateful lives in the caller.
type ScoreTable struct {
	Base map[models.ActionType]int
}

func DefaultScoreTable() ScoreTable {
	return ScoreTable{
		Base: map[models.ActionType]int{
			models.ActionTypeLike:    1,
			models.ActionTypeRetweet: 2,
			models.ActionTypeReply:   3,
			models.ActionTypeQuote:   5,
		},
	}
}

type ScoreResult struct {
	Base       int     `json:"base"`
	Multiplier float64 `json:"multiplier"`
	Total      int     `json:"total"`
}

// Score computes points for an action given the participant's join position
// and how many raids they have taken part in before. The speed bonus rewards
// early positions; the loyalty bonus stacks multiplicatively on top.
func (table ScoreTable) Score(actionType models.ActionType, position int, historyCount int) ScoreResult {
	base := table.Base[actionType]

	multiplier := speedMultiplier(position)
	if historyCount > LOYALTY_HISTORY_THRESHOLD {
		multiplier *= 1.2
	}

	return ScoreResult{
		Base:       base,
		Multiplier: multiplier,
		Total:      int(math.Round(float64(base) * multiplier)),
	}
}

func speedMultiplier(position int) float64 {
	switch {
	case position <= 5:
		return 3.0
	case position <= 10:
		return 2.0
	case position <= 25:
		return 1.5
	default:
		return 1.0
	}
}

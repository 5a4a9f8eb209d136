package scorer

import (
	"fmt"
	"strings"

	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

type Scorer struct {
	table rules.Table
}

func New(table rules.Table) *Scorer {
	return &Scorer{table: table}
}

// Score combines the structural sub-score and violations into a final score.
func (s *Scorer) Score(structural types.StructuralResult, violations []types.Violation) int {
	total := 0
	for _, v := range violations {
		if v.Type == types.ViolationParsingError {
			return 0
		}
		total += abs(v.Penalty)
	}

	base := s.table.Scoring.BaseScore
	if structural.Score > 0 {
		base = structural.Score
	}
	return clamp(base - total)
}

// Level buckets a score against the configured thresholds.
func (s *Scorer) Level(score int) types.Level {
	th := s.table.Scoring.Thresholds
	switch {
	case score >= th.High:
		return types.LevelHigh
	case score >= th.Medium:
		return types.LevelMedium
	default:
		return types.LevelLow
	}
}

// Action maps a level to its downstream action.
func Action(level types.Level) types.NextAction {
	switch level {
	case types.LevelHigh:
		return types.ActionAutoApprove
	case types.LevelMedium:
		return types.ActionCreateReviewTicket
	default:
		return types.ActionCreateMandatoryFixTicket
	}
}

func (s *Scorer) Process(level types.Level, score int) types.ProcessingResult {
	action := Action(level)
	msg := s.table.Processing[string(action)]
	switch {
	case msg == "":
		msg = fmt.Sprintf("%s: %d", action, score)
	case strings.Contains(msg, "%d"):
		msg = fmt.Sprintf(msg, score)
	}
	return types.ProcessingResult{Action: action, Message: msg, Score: score}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

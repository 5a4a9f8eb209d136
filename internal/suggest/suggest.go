package suggest

import (
	"fmt"

	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

type Suggester struct {
	table rules.Suggestions
}

func New(table rules.Suggestions) *Suggester {
	return &Suggester{table: table}
}

// Suggest returns one suggestion per distinct violation type in discovery
// order. With no violations it returns a single affirmation.
func (s *Suggester) Suggest(violations []types.Violation) []string {
	if len(violations) == 0 {
		return []string{s.table.NoViolations}
	}

	seen := make(map[string]bool, len(violations))
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		if seen[v.Type] {
			continue
		}
		seen[v.Type] = true
		out = append(out, s.forType(v.Type))
	}
	return out
}

func (s *Suggester) forType(kind string) string {
	if msg, ok := s.table.ByType[kind]; ok && msg != "" {
		return msg
	}
	if s.table.Fallback == "" {
		return kind
	}
	return fmt.Sprintf(s.table.Fallback, kind)
}

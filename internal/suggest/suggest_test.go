package suggest

import (
	"testing"

	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

func newSuggester() *Suggester {
	return New(rules.Default().Table.Suggestions)
}

func TestSuggestNoViolations(t *testing.T) {
	got := newSuggester().Suggest(nil)
	if len(got) != 1 || got[0] != "문서가 표준을 잘 준수하고 있습니다." {
		t.Fatalf("unexpected affirmation %v", got)
	}
}

func TestSuggestParsingError(t *testing.T) {
	got := newSuggester().Suggest([]types.Violation{{Type: types.ViolationParsingError}})
	if len(got) != 1 || got[0] != "문서를 확인하고 다시 시도하세요." {
		t.Fatalf("unexpected suggestions %v", got)
	}
}

func TestSuggestDedupesPreservingOrder(t *testing.T) {
	s := newSuggester()
	got := s.Suggest([]types.Violation{
		{Type: types.ViolationRuleContentTooShort},
		{Type: types.ViolationCodeExampleMissing},
		{Type: types.ViolationRuleContentTooShort},
		{Type: types.ViolationRuleContentTooShort},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %v", got)
	}
	if got[0] != s.forType(types.ViolationRuleContentTooShort) || got[1] != s.forType(types.ViolationCodeExampleMissing) {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestSuggestUnknownTypeFallsBack(t *testing.T) {
	got := newSuggester().Suggest([]types.Violation{{Type: "mystery"}})
	if len(got) != 1 || got[0] != "'mystery' 유형의 위반 사항을 수정하세요." {
		t.Fatalf("unexpected fallback %v", got)
	}

	bare := New(rules.Suggestions{})
	if out := bare.Suggest([]types.Violation{{Type: "mystery"}}); out[0] != "mystery" {
		t.Fatalf("expected type name without fallback template, got %v", out)
	}
}

func TestEveryViolationTypeHasSuggestion(t *testing.T) {
	byType := rules.Default().Table.Suggestions.ByType
	for _, kind := range []string{
		types.ViolationParsingError,
		types.ViolationTitleFormatMismatch,
		types.ViolationDesignRulesMissing,
		types.ViolationTechnicalSpecMissing,
		types.ViolationKeywordsMissing,
		types.ViolationRulesInsufficient,
		types.ViolationRuleContentTooShort,
		types.ViolationCodeExampleMissing,
		types.ViolationChangeHistoryMissing,
	} {
		if byType[kind] == "" {
			t.Fatalf("missing suggestion for %s", kind)
		}
	}
}

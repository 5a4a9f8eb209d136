package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/davidahmann/specgate/internal/rules"
)

const perfectDoc = "# [Proj] API 설계서\n\n" +
	"## 1. 개요\n인증 API 설계 문서입니다.\n\n" +
	"## 2. 설계 규칙\n" +
	"- **RULE-API-001** (MUST): 모든 요청은 토큰으로 인증되어야 한다\n" +
	"- **RULE-API-002** (SHOULD): 응답 본문은 JSON 형식을 사용해야 한다\n" +
	"- **RULE-API-003** (MUST NOT): 비밀번호를 로그에 남겨서는 안 된다\n" +
	"- **RULE-API-004** (MUST): 모든 오류는 표준 오류 코드로 반환한다\n" +
	"- **RULE-API-005** (SHOULD): 목록 응답은 페이지네이션을 지원한다\n\n" +
	"## 3. 기술 스펙\n```go\nfunc Login() error { return nil }\n```\n\n" +
	"## 4. 변경 이력\n- v1.0 최초 작성\n"

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(rules.MustCompileDefault())
}

func TestAnalyzePerfectDocument(t *testing.T) {
	res := newAnalyzer(t).Analyze(perfectDoc, "")

	if !res.TitleValid || !res.HasDesignRules || !res.HasTechnicalSpec || !res.HasChangeHistory {
		t.Fatalf("expected all structural flags, got %+v", res)
	}
	if res.RuleCount != 5 {
		t.Fatalf("expected 5 rules, got %d", res.RuleCount)
	}
	if res.CodeBlockCount != 1 {
		t.Fatalf("expected 1 code block, got %d", res.CodeBlockCount)
	}
	if res.Score != 100 {
		t.Fatalf("expected score 100, got %d", res.Score)
	}
	if res.Details["title"].Source != SourceBody {
		t.Fatalf("expected body title source, got %q", res.Details["title"].Source)
	}
	if res.Details["code_block"].Match != "go" {
		t.Fatalf("expected go language, got %q", res.Details["code_block"].Match)
	}
	if res.WordCount == 0 || res.LineCount < 10 {
		t.Fatalf("unexpected counts: words=%d lines=%d", res.WordCount, res.LineCount)
	}
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	a := newAnalyzer(t)
	for _, text := range []string{"", "   \n\t"} {
		res := a.Analyze(text, "Anything")
		if res.Error != ErrEmptyDocument {
			t.Fatalf("expected empty document error, got %q", res.Error)
		}
		if res.Score != 0 || res.TitleValid {
			t.Fatalf("expected zero result, got %+v", res)
		}
	}
}

func TestAnalyzeExternalTitleWins(t *testing.T) {
	a := newAnalyzer(t)
	body := "# not a valid heading\n\n## 2. 설계 규칙\n"

	res := a.Analyze(body, "[Proj] API 설계서")
	if !res.TitleValid {
		t.Fatalf("expected external title to validate")
	}
	if res.Details["title"].Source != SourceExternalTitle {
		t.Fatalf("expected external source, got %q", res.Details["title"].Source)
	}

	res = a.Analyze(perfectDoc, "random page name")
	if res.TitleValid {
		t.Fatalf("external title should override valid body heading")
	}
}

func TestAnalyzeTitlePatternOrder(t *testing.T) {
	a := newAnalyzer(t)
	c := rules.MustCompileDefault()

	cases := []struct {
		title string
		want  int
	}{
		{"[Proj] [API] 설계서", 0},
		{"[Proj] API 설계서", 0},
		{"[Proj] 결제 API 설계서", 1},
		{"결제 API 설계서", 2},
	}
	for _, tc := range cases {
		res := a.Analyze("body", tc.title)
		if !res.TitleValid {
			t.Fatalf("%q: expected valid title", tc.title)
		}
		if res.Details["title"].Pattern != c.Table.Title.Patterns[tc.want] {
			t.Fatalf("%q: matched %q, want pattern %d", tc.title, res.Details["title"].Pattern, tc.want)
		}
	}
}

func TestRuleCountCurve(t *testing.T) {
	curve := rules.Default().Table.RuleCount
	want := map[int]int{0: 0, 1: 2, 2: 4, 4: 8, 5: 10, 9: 10}
	for count, expected := range want {
		if got := ruleCountScore(curve, count); got != expected {
			t.Fatalf("count %d: got %d want %d", count, got, expected)
		}
	}
}

func TestAnalyzeScoreNeverExceeds100(t *testing.T) {
	var b strings.Builder
	b.WriteString(perfectDoc)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "- **RULE-EXT-%03d** (MUST): 추가 규칙 %d 번 내용입니다\n```\nx\n```\n", i, i)
	}
	res := newAnalyzer(t).Analyze(b.String(), "")
	if res.Score != 100 {
		t.Fatalf("expected clamp at 100, got %d", res.Score)
	}
	if res.Details["code_block"].Match == "" {
		t.Fatalf("expected languages recorded")
	}
}

func TestAnalyzeMissingSections(t *testing.T) {
	res := newAnalyzer(t).Analyze("# [Proj] API 설계서\n\n본문만 있습니다.\n", "")
	if res.HasDesignRules || res.HasTechnicalSpec || res.RuleCount != 0 {
		t.Fatalf("unexpected signals %+v", res)
	}
	if res.Score != 20 {
		t.Fatalf("expected title-only score 20, got %d", res.Score)
	}
}

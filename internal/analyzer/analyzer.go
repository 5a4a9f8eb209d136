package analyzer

import (
	"strings"

	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

const (
	SourceExternalTitle = "external_title"
	SourceBody          = "document_body"

	ErrEmptyDocument = "empty_document"
)

// Analyzer extracts structural signals from a design document.
type Analyzer struct {
	rules *rules.Compiled
}

func New(compiled *rules.Compiled) *Analyzer {
	return &Analyzer{rules: compiled}
}

// Analyze inspects text and returns the structural sub-score. A non-empty
// title takes precedence over any heading inside text.
func (a *Analyzer) Analyze(text, title string) types.StructuralResult {
	if strings.TrimSpace(text) == "" {
		return types.StructuralResult{Details: map[string]types.CheckDetail{}, Error: ErrEmptyDocument}
	}

	t := a.rules.Table
	res := types.StructuralResult{Details: map[string]types.CheckDetail{}}

	titleText, source := text, SourceBody
	if strings.TrimSpace(title) != "" {
		titleText, source = "# "+strings.TrimSpace(title), SourceExternalTitle
	}
	for i, re := range a.rules.Titles {
		if m := re.FindString(titleText); m != "" {
			res.TitleValid = true
			res.Details["title"] = types.CheckDetail{
				Pattern:     t.Title.Patterns[i],
				Description: t.Title.Description,
				Match:       strings.TrimSpace(m),
				Weight:      t.Title.Weight,
				Source:      source,
			}
			break
		}
	}

	if m := a.rules.DesignRules.FindString(text); m != "" {
		res.HasDesignRules = true
		res.Details["design_rules_section"] = detail(t.DesignRulesSection, m)
	}
	if m := a.rules.TechnicalSpec.FindString(text); m != "" {
		res.HasTechnicalSpec = true
		res.Details["technical_spec_section"] = detail(t.TechnicalSpecSection, m)
	}

	ruleMatches := a.rules.RuleFormat.FindAllString(text, -1)
	res.RuleCount = len(ruleMatches)
	if res.RuleCount > 0 {
		d := detail(t.RuleFormat, ruleMatches[0])
		d.Weight = ruleCountScore(t.RuleCount, res.RuleCount)
		res.Details["rule_format"] = d
	}

	blocks := a.rules.CodeBlock.FindAllStringSubmatch(text, -1)
	res.CodeBlockCount = len(blocks)
	if len(blocks) > 0 {
		langs := make([]string, 0, len(blocks))
		for _, b := range blocks {
			lang := "plain"
			if len(b) > 1 && b[1] != "" {
				lang = b[1]
			}
			langs = append(langs, lang)
		}
		d := detail(t.CodeBlock, strings.Join(langs, ","))
		res.Details["code_block"] = d
	}

	for i, re := range a.rules.ChangeHistory {
		if m := re.FindString(text); m != "" {
			res.HasChangeHistory = true
			res.Details["change_history"] = types.CheckDetail{
				Pattern:     t.ChangeHistory.Patterns[i],
				Description: t.ChangeHistory.Description,
				Match:       strings.TrimSpace(m),
				Weight:      t.ChangeHistory.Weight,
			}
			break
		}
	}

	res.WordCount = len(strings.Fields(text))
	res.LineCount = strings.Count(text, "\n") + 1
	res.Score = a.score(res)
	return res
}

func (a *Analyzer) score(res types.StructuralResult) int {
	t := a.rules.Table
	score := 0
	if res.TitleValid {
		score += t.Title.Weight
	}
	if res.HasDesignRules {
		score += t.DesignRulesSection.Weight
	}
	if res.HasTechnicalSpec {
		score += t.TechnicalSpecSection.Weight
	}
	score += ruleCountScore(t.RuleCount, res.RuleCount)
	if res.CodeBlockCount > 0 {
		score += t.CodeBlock.Weight
	}
	if res.HasChangeHistory {
		score += t.ChangeHistory.Weight
	}
	if score > 100 {
		score = 100
	}
	return score
}

func ruleCountScore(curve rules.RuleCountCurve, count int) int {
	switch {
	case count <= 0:
		return 0
	case count >= curve.FullCreditAt:
		return curve.FullCredit
	}
	partial := count * curve.PerRule
	if partial >= curve.FullCredit {
		partial = curve.FullCredit - 1
	}
	return partial
}

func detail(check rules.PatternCheck, match string) types.CheckDetail {
	return types.CheckDetail{
		Pattern:     check.Pattern,
		Description: check.Description,
		Match:       strings.TrimSpace(match),
		Weight:      check.Weight,
	}
}

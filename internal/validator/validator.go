package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/pkg/types"
)

var ErrInvalidDepth = errors.New("invalid check depth")

// Validator runs the template checklist against a document.
type Validator struct {
	rules *rules.Compiled
}

func New(compiled *rules.Compiled) *Validator {
	return &Validator{rules: compiled}
}

func (v *Validator) Validate(text string, depth types.CheckDepth) ([]types.Violation, error) {
	return v.ValidateTitled(text, "", depth)
}

// ValidateTitled is Validate with an externally supplied title that replaces
// any heading found in text for the title check.
func (v *Validator) ValidateTitled(text, title string, depth types.CheckDepth) ([]types.Violation, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDepth, depth)
	}
	if strings.TrimSpace(text) == "" {
		return []types.Violation{v.violation(types.ViolationParsingError)}, nil
	}

	out := []types.Violation{}

	titleText := text
	if strings.TrimSpace(title) != "" {
		titleText = "# " + strings.TrimSpace(title)
	}
	if !v.titleMatches(titleText) {
		out = append(out, v.violation(types.ViolationTitleFormatMismatch))
	}

	section, hasRules := v.rules.ExtractSection(text, v.rules.DesignRules)
	if !hasRules {
		out = append(out, v.violation(types.ViolationDesignRulesMissing))
	}

	if depth.Includes(types.DepthStructure) {
		if !v.rules.TechnicalSpec.MatchString(text) {
			out = append(out, v.violation(types.ViolationTechnicalSpecMissing))
		}
		if hasRules {
			out = append(out, v.checkRulesContent(section)...)
		}
	}

	if depth.Includes(types.DepthFull) {
		if !v.rules.CodeBlock.MatchString(text) {
			out = append(out, v.violation(types.ViolationCodeExampleMissing))
		}
		if !v.rules.HasChangeHistory(text) {
			out = append(out, v.violation(types.ViolationChangeHistoryMissing))
		}
	}

	return out, nil
}

func (v *Validator) checkRulesContent(section string) []types.Violation {
	limits := v.rules.Table.Validator
	out := []types.Violation{}

	if !v.rules.Modal.MatchString(section) {
		out = append(out, v.violation(types.ViolationKeywordsMissing))
	}

	if len(v.rules.Bullet.FindAllStringIndex(section, -1)) < limits.MinRules {
		out = append(out, v.violation(types.ViolationRulesInsufficient))
	}

	for i, m := range v.rules.RuleLine.FindAllStringSubmatch(section, -1) {
		if len(m) < 2 {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(m[1])) < limits.MinRuleLength {
			tooShort := v.violation(types.ViolationRuleContentTooShort)
			if strings.Contains(tooShort.Message, "%d") {
				tooShort.Message = fmt.Sprintf(tooShort.Message, i+1)
			}
			out = append(out, tooShort)
		}
	}

	return out
}

func (v *Validator) titleMatches(text string) bool {
	for _, re := range v.rules.Titles {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (v *Validator) violation(kind string) types.Violation {
	return types.Violation{
		Type:    kind,
		Message: v.rules.Table.Message(kind),
		Penalty: v.rules.Table.Penalty(kind),
	}
}

package rules

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/davidahmann/specgate/internal/crypto"
	"gopkg.in/yaml.v3"
)

//go:embed speclint.yaml
var defaultTableYAML []byte

type LoadedRules struct {
	Table Table
	Hash  string
	Bytes []byte
}

// LoadRules loads a YAML rule table and computes its hash from raw bytes.
func LoadRules(path string) (LoadedRules, error) {
	// #nosec G304 -- path comes from operator-configured rules path.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedRules{}, err
	}
	return Parse(data)
}

// Parse decodes and validates a rule table.
func Parse(data []byte) (LoadedRules, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return LoadedRules{}, err
	}
	if err := t.Validate(); err != nil {
		return LoadedRules{}, err
	}

	return LoadedRules{
		Table: t,
		Hash:  crypto.DigestWithPrefix(data),
		Bytes: data,
	}, nil
}

// Default returns the built-in rule table.
func Default() LoadedRules {
	loaded, err := Parse(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: built-in table is invalid: %v", err))
	}
	return loaded
}

func (t Table) Validate() error {
	if len(t.Title.Patterns) == 0 {
		return fmt.Errorf("title.patterns is required")
	}
	if t.DesignRulesSection.Pattern == "" || t.TechnicalSpecSection.Pattern == "" {
		return fmt.Errorf("section patterns are required")
	}
	if t.RuleFormat.Pattern == "" || t.CodeBlock.Pattern == "" {
		return fmt.Errorf("rule_format.pattern and code_block.pattern are required")
	}
	if t.Validator.ModalPattern == "" || t.Validator.BulletPattern == "" || t.Validator.RuleLinePattern == "" || t.Validator.NextSectionPattern == "" {
		return fmt.Errorf("validator patterns are required")
	}
	if t.Scoring.BaseScore <= 0 || t.Scoring.BaseScore > 100 {
		return fmt.Errorf("scoring.base_score must be within 1..100")
	}
	th := t.Scoring.Thresholds
	if th.Medium <= 0 || th.High <= th.Medium || th.High > 100 {
		return fmt.Errorf("scoring.thresholds must satisfy 0 < medium < high <= 100")
	}
	for kind, penalty := range t.Scoring.Deductions {
		if penalty > 0 {
			return fmt.Errorf("scoring.deductions.%s must not be positive", kind)
		}
	}
	return nil
}

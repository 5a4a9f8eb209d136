package rules

type Table struct {
	RulesID              string            `yaml:"rules_id"`
	RulesVersion         string            `yaml:"rules_version"`
	Title                TitleCheck        `yaml:"title"`
	DesignRulesSection   PatternCheck      `yaml:"design_rules_section"`
	TechnicalSpecSection PatternCheck      `yaml:"technical_spec_section"`
	RuleFormat           PatternCheck      `yaml:"rule_format"`
	RuleCount            RuleCountCurve    `yaml:"rule_count"`
	CodeBlock            PatternCheck      `yaml:"code_block"`
	ChangeHistory        MultiCheck        `yaml:"change_history"`
	Validator            ValidatorLimits   `yaml:"validator"`
	Scoring              Scoring           `yaml:"scoring"`
	Messages             map[string]string `yaml:"messages"`
	Suggestions          Suggestions       `yaml:"suggestions"`
	Processing           map[string]string `yaml:"processing"`
	Tracker              TrackerLabels     `yaml:"tracker"`
}

type TitleCheck struct {
	Patterns    []string `yaml:"patterns"`
	Weight      int      `yaml:"weight"`
	Description string   `yaml:"description"`
}

type PatternCheck struct {
	Pattern     string `yaml:"pattern"`
	Weight      int    `yaml:"weight"`
	Description string `yaml:"description"`
}

type MultiCheck struct {
	Patterns    []string `yaml:"patterns"`
	Weight      int      `yaml:"weight"`
	Description string   `yaml:"description"`
}

// RuleCountCurve awards FullCredit once FullCreditAt rules are present and
// PerRule points per rule below that.
type RuleCountCurve struct {
	FullCreditAt int `yaml:"full_credit_at"`
	FullCredit   int `yaml:"full_credit"`
	PerRule      int `yaml:"per_rule"`
}

type ValidatorLimits struct {
	ModalPattern       string `yaml:"modal_pattern"`
	BulletPattern      string `yaml:"bullet_pattern"`
	RuleLinePattern    string `yaml:"rule_line_pattern"`
	NextSectionPattern string `yaml:"next_section_pattern"`
	MinRules           int    `yaml:"min_rules"`
	MinRuleLength      int    `yaml:"min_rule_length"`
}

type Scoring struct {
	BaseScore  int            `yaml:"base_score"`
	Thresholds Thresholds     `yaml:"thresholds"`
	Deductions map[string]int `yaml:"deductions"`
}

type Thresholds struct {
	High   int `yaml:"high"`
	Medium int `yaml:"medium"`
}

type Suggestions struct {
	NoViolations string            `yaml:"no_violations"`
	Fallback     string            `yaml:"fallback"`
	ByType       map[string]string `yaml:"by_type"`
}

type TrackerLabels struct {
	ReviewLabels       []string          `yaml:"review_labels"`
	MandatoryFixLabels []string          `yaml:"mandatory_fix_labels"`
	StatusLabels       map[string]string `yaml:"status_labels"`
}

// Penalty returns the configured deduction for a violation type, or 0 when none is configured.
func (t Table) Penalty(violationType string) int {
	return t.Scoring.Deductions[violationType]
}

// Message returns the configured violation message, falling back to the type name.
func (t Table) Message(violationType string) string {
	if msg, ok := t.Messages[violationType]; ok && msg != "" {
		return msg
	}
	return violationType
}

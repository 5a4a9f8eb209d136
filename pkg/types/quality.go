package types

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

type NextAction string

const (
	ActionAutoApprove              NextAction = "auto_approve"
	ActionCreateReviewTicket       NextAction = "create_review_ticket"
	ActionCreateMandatoryFixTicket NextAction = "create_mandatory_fix_ticket"
)

// Violation types emitted by the validator.
const (
	ViolationParsingError         = "parsing_error"
	ViolationTitleFormatMismatch  = "title_format_mismatch"
	ViolationDesignRulesMissing   = "design_rules_missing"
	ViolationTechnicalSpecMissing = "technical_spec_missing"
	ViolationKeywordsMissing      = "design_rules_keywords_missing"
	ViolationRulesInsufficient    = "design_rules_insufficient"
	ViolationRuleContentTooShort  = "rule_content_too_short"
	ViolationCodeExampleMissing   = "code_example_missing"
	ViolationChangeHistoryMissing = "change_history_missing"
)

type Violation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Penalty int    `json:"penalty"`
}

type CheckDetail struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
	Match       string `json:"match,omitempty"`
	Weight      int    `json:"weight"`
	Source      string `json:"source,omitempty"`
}

type StructuralResult struct {
	TitleValid       bool                   `json:"title_valid"`
	HasDesignRules   bool                   `json:"has_design_rules_section"`
	HasTechnicalSpec bool                   `json:"has_technical_spec_section"`
	RuleCount        int                    `json:"rule_count"`
	CodeBlockCount   int                    `json:"code_block_count"`
	HasChangeHistory bool                   `json:"has_change_history"`
	WordCount        int                    `json:"word_count"`
	LineCount        int                    `json:"line_count"`
	Score            int                    `json:"structure_score"`
	Details          map[string]CheckDetail `json:"details"`
	Error            string                 `json:"error,omitempty"`
}

type ProcessingResult struct {
	Action  NextAction `json:"action"`
	Message string     `json:"message"`
	Score   int        `json:"score"`
}

type ResultMetadata struct {
	CheckDepth       CheckDepth       `json:"check_depth"`
	ContentLength    int              `json:"content_length"`
	Timestamp        string           `json:"timestamp"`
	QualityLevel     Level            `json:"quality_level"`
	ProcessingResult ProcessingResult `json:"processing_result"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	Structure        StructuralResult `json:"structure"`
	RulesHash        string           `json:"rules_hash,omitempty"`
}

type QualityResult struct {
	Score       int            `json:"score"`
	Level       Level          `json:"level"`
	Violations  []Violation    `json:"violations"`
	Suggestions []string       `json:"suggestions"`
	Metadata    ResultMetadata `json:"metadata"`
}

// HasViolation reports whether any violation of the given type is present.
func (r QualityResult) HasViolation(violationType string) bool {
	for _, v := range r.Violations {
		if v.Type == violationType {
			return true
		}
	}
	return false
}

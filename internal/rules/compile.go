package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidPattern = errors.New("invalid rule pattern")

// Compiled holds a rule table with every pattern compiled once.
type Compiled struct {
	Table Table
	Hash  string

	Titles        []*regexp.Regexp
	DesignRules   *regexp.Regexp
	TechnicalSpec *regexp.Regexp
	RuleFormat    *regexp.Regexp
	CodeBlock     *regexp.Regexp
	ChangeHistory []*regexp.Regexp

	Modal       *regexp.Regexp
	Bullet      *regexp.Regexp
	RuleLine    *regexp.Regexp
	NextSection *regexp.Regexp
}

func Compile(loaded LoadedRules) (*Compiled, error) {
	t := loaded.Table
	c := &Compiled{Table: t, Hash: loaded.Hash}

	var err error
	if c.Titles, err = compileAll("title.patterns", t.Title.Patterns); err != nil {
		return nil, err
	}
	if c.ChangeHistory, err = compileAll("change_history.patterns", t.ChangeHistory.Patterns); err != nil {
		return nil, err
	}

	single := []struct {
		name    string
		pattern string
		dst     **regexp.Regexp
	}{
		{"design_rules_section.pattern", t.DesignRulesSection.Pattern, &c.DesignRules},
		{"technical_spec_section.pattern", t.TechnicalSpecSection.Pattern, &c.TechnicalSpec},
		{"rule_format.pattern", t.RuleFormat.Pattern, &c.RuleFormat},
		{"code_block.pattern", t.CodeBlock.Pattern, &c.CodeBlock},
		{"validator.modal_pattern", t.Validator.ModalPattern, &c.Modal},
		{"validator.bullet_pattern", t.Validator.BulletPattern, &c.Bullet},
		{"validator.rule_line_pattern", t.Validator.RuleLinePattern, &c.RuleLine},
		{"validator.next_section_pattern", t.Validator.NextSectionPattern, &c.NextSection},
	}
	for _, s := range single {
		re, err := regexp.Compile(s.pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, s.name, err)
		}
		*s.dst = re
	}

	return c, nil
}

// MustCompileDefault compiles the built-in table. It panics only if the
// embedded table is broken.
func MustCompileDefault() *Compiled {
	c, err := Compile(Default())
	if err != nil {
		panic(err)
	}
	return c
}

func compileAll(name string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidPattern, name, i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// HasChangeHistory reports whether any change-history pattern matches text.
func (c *Compiled) HasChangeHistory(text string) bool {
	for _, re := range c.ChangeHistory {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractSection returns the trimmed body that follows the first match of
// header, up to the next numbered "##" section.
func (c *Compiled) ExtractSection(text string, header *regexp.Regexp) (string, bool) {
	loc := header.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if next := c.NextSection.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest), true
}

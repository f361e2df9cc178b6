package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// ruleMatcher is a compiled domain.Rule.
type ruleMatcher struct {
	tag      string
	category string
	keywords []*regexp.Regexp
	domains  []string
	title    *regexp.Regexp
}

// compileRules compiles the configured rules once so the rule tier stays
// free of per-pass allocation beyond the matches themselves.
func compileRules(rules []domain.Rule) ([]ruleMatcher, error) {
	matchers := make([]ruleMatcher, 0, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		m := ruleMatcher{
			tag:      domain.NormalizeTagName(r.Tag),
			category: domain.NormalizeCategory(r.Category),
		}
		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			// Word boundaries are spelled out because \b does not treat
			// symbols such as "c++" or "c#" as part of a word.
			re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(kw) + `(?:$|[^\p{L}\p{N}_])`)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q keyword %q: %w", domain.ErrInvalidConfig, r.Tag, kw, err)
			}
			m.keywords = append(m.keywords, re)
		}
		for _, d := range r.Domains {
			d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
			if d != "" {
				m.domains = append(m.domains, d)
			}
		}
		if r.TitlePattern != "" {
			m.title = regexp.MustCompile(r.TitlePattern)
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// matches reports whether any of the rule's matchers fire.
func (m *ruleMatcher) matches(c domain.Content, host, text string) bool {
	for _, d := range m.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	if m.title != nil && m.title.MatchString(c.Title) {
		return true
	}
	for _, re := range m.keywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

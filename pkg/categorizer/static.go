package categorizer

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed static_rules.yaml
var staticRulesYAML []byte

type staticCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type staticConfig struct {
	Categories []staticCategory `yaml:"categories"`
}

type staticRule struct {
	re       *regexp.Regexp
	category string
}

// StaticTable is the built-in keyword table. It is immutable once built and
// safe for concurrent use.
type StaticTable struct {
	rules []staticRule
}

// ParseStaticTable builds a table from YAML. Each keyword becomes a
// whole-string, case-insensitive pattern of the form .*\bkeyword\b.* and the
// declaration order of categories and keywords is kept.
func ParseStaticTable(data []byte) (*StaticTable, error) {
	var cfg staticConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing static rules: %w", err)
	}

	t := &StaticTable{}
	for _, c := range cfg.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("static category without name")
		}
		for _, kw := range c.Keywords {
			re, err := regexp.Compile(`(?i)^` + sameLine + `\b` + regexp.QuoteMeta(kw) + `\b` + sameLine + `$`)
			if err != nil {
				return nil, fmt.Errorf("compiling keyword %q of %q: %w", kw, c.Name, err)
			}
			t.rules = append(t.rules, staticRule{re: re, category: c.Name})
		}
	}
	return t, nil
}

// sameLine matches within one line. Go's "." also accepts \r, NEL and the
// Unicode line and paragraph separators.
const sameLine = `[^\n\r\x{85}\x{2028}\x{2029}]*`

var defaultTable = sync.OnceValue(func() *StaticTable {
	t, err := ParseStaticTable(staticRulesYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultStaticTable returns the embedded table, built on first use.
func DefaultStaticTable() *StaticTable {
	return defaultTable()
}

// Match returns the category of the first keyword pattern that matches the
// whole haystack.
func (t *StaticTable) Match(haystack string) (string, bool) {
	for _, r := range t.rules {
		if r.re.MatchString(haystack) {
			return r.category, true
		}
	}
	return "", false
}

// Categories lists the distinct categories in declaration order.
func (t *StaticTable) Categories() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range t.rules {
		if _, ok := seen[r.category]; ok {
			continue
		}
		seen[r.category] = struct{}{}
		out = append(out, r.category)
	}
	return out
}

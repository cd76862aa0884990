package pipeline

import (
	ignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides which file names are left out of synchronization on
// both sides. Patterns use .gitignore syntax.
type Matcher struct {
	gi *ignore.GitIgnore
}

func NewMatcher(patterns []string) *Matcher {
	if len(patterns) == 0 {
		return &Matcher{}
	}

	return &Matcher{gi: ignore.CompileIgnoreLines(patterns...)}
}

func (m *Matcher) Ignored(name string) bool {
	if m == nil || m.gi == nil {
		return false
	}

	return m.gi.MatchesPath(name)
}

// Filter drops the names matched by m, keeping order.
func (m *Matcher) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !m.Ignored(name) {
			out = append(out, name)
		}
	}

	return out
}

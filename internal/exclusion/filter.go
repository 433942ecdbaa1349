// Package exclusion decides whether a class is eligible for decompilation
// based on the configured package-prefix rules.
package exclusion

import (
	"strings"

	"github.com/Iron-Ham/jdecomp/internal/config"
)

// Packaged is anything that may belong to a Java package. Classes in the
// default package report ok == false.
type Packaged interface {
	Package() (pkg string, ok bool)
}

// Decision is the outcome of evaluating the rules against one package.
type Decision struct {
	Excluded bool
	// Rule is the first matching rule when Excluded is true.
	Rule config.ExclusionRule
	// Index is the position of Rule in the rule list, or -1.
	Index int
}

// Filter evaluates an ordered list of exclusion rules. It holds its own copy
// of the rules, so a Filter is safe for concurrent use.
type Filter struct {
	rules []config.ExclusionRule
}

// New returns a filter over rules. The slice is copied.
func New(rules []config.ExclusionRule) *Filter {
	return &Filter{rules: append([]config.ExclusionRule(nil), rules...)}
}

// Rules returns a copy of the filter's rules.
func (f *Filter) Rules() []config.ExclusionRule {
	return append([]config.ExclusionRule(nil), f.rules...)
}

// IsExcluded reports whether target must be skipped. A target without a
// package is never excluded.
func (f *Filter) IsExcluded(target Packaged) bool {
	return f.DecideTarget(target).Excluded
}

// DecideTarget is Decide for a target that may lack a package.
func (f *Filter) DecideTarget(target Packaged) Decision {
	pkg, ok := target.Package()
	if !ok {
		return Decision{Index: -1}
	}
	return f.Decide(pkg)
}

// Decide scans the rules in order. A rule matches when pkg starts with its
// prefix and the rule both applies and is recursive; the first match
// excludes. Matching is case-sensitive and not segment-aware, so "com.foo"
// also matches "com.foobar".
func (f *Filter) Decide(pkg string) Decision {
	for i, rule := range f.rules {
		if matches(rule, pkg) {
			return Decision{Excluded: true, Rule: rule, Index: i}
		}
	}
	return Decision{Index: -1}
}

func matches(rule config.ExclusionRule, pkg string) bool {
	return strings.HasPrefix(pkg, rule.Package) && rule.Applies && rule.Recursive
}

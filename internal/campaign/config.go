// Package campaign orchestrates mutation-testing campaigns: target
// discovery, mutant synthesis, the apply-test-restore loop, and the
// per-line skip planner.
package campaign

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// PerTargetRule overrides the test command for targets matching a glob.
// Rules are ordered; the first matching glob wins.
type PerTargetRule struct {
	Glob    string
	Cmd     string
	Timeout time.Duration
}

// Config is the resolved campaign configuration handed to the runner.
// Config-file discovery and flag merging happen in the CLI adaptor; the
// runner only sees the merged result.
type Config struct {
	TestCmd       string
	TestTimeout   time.Duration // 0 derives max(2 x baseline, 5s)
	Comprehensive bool
	Mutations     []string // slug whitelist; nil enables all
	Ignore        []string // path substrings
	PerTarget     []PerTargetRule
}

// SlugEnabled reports whether the whitelist admits the slug.
func (c Config) SlugEnabled(slug string) bool {
	if len(c.Mutations) == 0 {
		return true
	}

	for _, s := range c.Mutations {
		if s == slug {
			return true
		}
	}

	return false
}

// ResolveTest returns the test command and configured timeout for one
// target path: per-target rules first, then the global command.
func (c Config) ResolveTest(path string) (string, time.Duration) {
	for _, rule := range c.PerTarget {
		if ok, err := doublestar.Match(rule.Glob, path); err == nil && ok && rule.Cmd != "" {
			timeout := rule.Timeout
			if timeout == 0 {
				timeout = c.TestTimeout
			}

			return rule.Cmd, timeout
		}
	}

	return c.TestCmd, c.TestTimeout
}

// Package rule holds the declarative rule data model: the raw RuleBuilder
// form decoded from TOML, and the compiled Rule a pipeline actually runs,
// where every plugin tag has been resolved to a live instance and every
// option template has been compiled.
package rule

// Rule is a fully compiled, ready-to-run organization rule.
type Rule struct {
	Name        string
	Description string
	Tags        []string
	Pipeline    []Stage
}

// HasTag reports whether t is one of the rule's tags, used by the CLI's
// --tag selection filter.
func (r *Rule) HasTag(t string) bool {
	for _, tag := range r.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

package authz

import "strings"

// PolicyPrefix marks a policy name as a permission expression. Names without
// it belong to whatever named-policy mechanism the caller uses.
const PolicyPrefix = "Permission:"

const (
	segmentNavigation = "navigation"
	segmentAction     = "action"
)

// Requirement is the parsed form of a permission policy name. It carries
// resolved symbolic keys, never raw strings, and lives only for the single
// authorization check it was parsed for.
type Requirement struct {
	Navigation Navigation
	Action     Action
}

// PolicyName renders the wire-level policy string for a requirement.
func (r Requirement) PolicyName() string {
	return PolicyPrefix + "Navigation=" + string(r.Navigation) + ";Action=" + string(r.Action)
}

// ParsePolicy parses a policy name of the form
//
//	Permission:Navigation=<EnumName>;Action=<EnumName>
//
// Segment keys are case-insensitive, whitespace around ';' and '=' is
// trimmed, segment order does not matter and unknown segments are ignored.
//
// The second result is false when the name is not a permission expression:
// missing prefix, missing Navigation or Action segment, or an enum name that
// does not parse. That outcome is deliberately not an error so callers can
// fall back to their default policy resolution.
func ParsePolicy(name string) (Requirement, bool) {
	rest, ok := cutPrefixFold(strings.TrimSpace(name), PolicyPrefix)
	if !ok {
		return Requirement{}, false
	}

	var (
		nav    Navigation
		action Action
		hasNav bool
		hasAct bool
	)
	for _, segment := range strings.Split(rest, ";") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case segmentNavigation:
			nav, hasNav = ParseNavigation(value)
			if !hasNav {
				return Requirement{}, false
			}
		case segmentAction:
			action, hasAct = ParseAction(value)
			if !hasAct {
				return Requirement{}, false
			}
		}
	}

	if !hasNav || !hasAct {
		return Requirement{}, false
	}
	return Requirement{Navigation: nav, Action: action}, true
}

// cutPrefixFold is strings.CutPrefix with case-insensitive matching.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

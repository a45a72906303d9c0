package domain

// InfoCategory classifies an informational notice.
type InfoCategory string

const (
	CategoryBrokenLink       InfoCategory = "broken_link"
	CategoryAbsoluteLink     InfoCategory = "absolute_link"
	CategoryUnrecognizedLink InfoCategory = "unrecognized_link"
	CategoryMissingNav       InfoCategory = "missing_nav"
	CategoryNoGitLogs        InfoCategory = "no_git_logs"
	CategoryDeprecation      InfoCategory = "deprecation_warning"
)

// InfoMessage is a notice worth surfacing but not a diagnostic: a broken
// link, a page missing from the nav, a deprecation warning. Notices are
// reported in aggregate at the end of a build, never streamed individually.
type InfoMessage struct {
	Category InfoCategory `json:"category"`
	File     string       `json:"file"`
	// Target is the link text, nav entry, or warning class the notice is
	// about.
	Target string `json:"target,omitempty"`
	// Suggestion carries the tool's own hint when it offered one.
	Suggestion string `json:"suggestion,omitempty"`
}

// Key returns the deduplication identity of the notice.
func (m InfoMessage) Key() string {
	return string(m.Category) + "\x00" + m.File + "\x00" + m.Target
}

// DedupeInfoMessages removes duplicate notices, keeping the first occurrence
// of each identity in input order.
func DedupeInfoMessages(msgs []InfoMessage) []InfoMessage {
	seen := make(map[string]struct{}, len(msgs))
	result := make([]InfoMessage, 0, len(msgs))
	for _, m := range msgs {
		key := m.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}
	return result
}

// GroupInfoMessages partitions notices by category, preserving input order
// within each category.
func GroupInfoMessages(msgs []InfoMessage) map[InfoCategory][]InfoMessage {
	groups := make(map[InfoCategory][]InfoMessage)
	for _, m := range msgs {
		groups[m.Category] = append(groups[m.Category], m)
	}
	return groups
}

package sanitize

import (
	"regexp"
	"sort"
	"strings"
)

const (
	mask     = "[REDACTED]"
	maskLine = "[REDACTED LINE]"
)

// Stats counts replacements per rule name.
type Stats map[string]int

// Total is the number of replacements across all rules.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Rules lists the rule names that fired, sorted.
func (s Stats) Rules() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

type rule struct {
	name string
	re   *regexp.Regexp
	// keep is the submatch kept in front of the mask; 0 masks the whole match.
	keep int
}

var rules = []rule{
	{name: "private-key", re: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]+?-----END [A-Z ]*PRIVATE KEY-----`)},
	{name: "bearer", re: regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)[A-Za-z0-9_\-=./+]{10,}`), keep: 1},
	{name: "openrouter-key", re: regexp.MustCompile(`sk-or-v1-[A-Za-z0-9]{16,}`)},
	{name: "openai-key", re: regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`)},
	{name: "github-token", re: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{30,}`)},
	{name: "aws", re: regexp.MustCompile(`(?i)((?:aws_secret_access_key|aws_access_key_id|x-amz-security-token)\s*[:=]\s*)['"]?[A-Za-z0-9/+=]{8,}['"]?`), keep: 1},
	{name: "assignment", re: regexp.MustCompile(`(?i)((?:api[-_ ]?key|secret|token|password|passwd|pwd)\s*[:=]\s*)['"]?[A-Za-z0-9_\-=./+]{6,}['"]?`), keep: 1},
}

// envLine matches dotenv-style lines that carry a credential.
var envLine = regexp.MustCompile(`(?i)^\s*(export\s+)?[A-Z0-9_]*(SECRET|PASSWORD|TOKEN|API_?KEY)[A-Z0-9_]*\s*=\s*\S+`)

// Redact masks credentials in text before it is sent to a provider. Whole
// dotenv-style credential lines are replaced; inline matches keep their key
// and lose the value.
func Redact(text string) (string, Stats) {
	stats := Stats{}

	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		if envLine.MatchString(ln) {
			lines[i] = maskLine
			stats["env-line"]++
		}
	}
	text = strings.Join(lines, "\n")

	for _, r := range rules {
		text = r.re.ReplaceAllStringFunc(text, func(m string) string {
			stats[r.name]++
			if r.keep == 0 {
				return mask
			}
			sub := r.re.FindStringSubmatch(m)
			return sub[r.keep] + mask
		})
	}
	return text, stats
}

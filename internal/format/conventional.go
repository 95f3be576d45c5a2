package format

import "strings"

// prefixEmoji swaps the conventional commit types the composer knows about
// for their emoji. Order matters for lines mentioning several types.
var prefixEmoji = []struct{ prefix, emoji string }{
	{"chore:", "🧹:"},
	{"feat:", "✨:"},
	{"fix:", "🛠️:"},
	{"docs:", "📄:"},
}

// CleanSuggestion removes what models add around a commit message despite
// being told not to: fence lines, markdown tables and wrapping quotes. Fenced
// content is kept. When nothing survives, the trimmed reply is returned.
func CleanSuggestion(s string) string {
	raw := strings.TrimSpace(s)
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		t := strings.TrimSpace(ln)
		if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "|") {
			continue
		}
		out = append(out, ln)
	}
	s = strings.TrimSpace(strings.Join(out, "\n"))
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '`' && s[len(s)-1] == '`') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return raw
	}
	return s
}

// Truncate keeps the first n runes of s; n <= 0 means no limit.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func replacePrefixes(line string) string {
	for _, p := range prefixEmoji {
		line = strings.ReplaceAll(line, p.prefix, p.emoji)
	}
	return line
}

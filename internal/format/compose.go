package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gessage/gcm/internal/ai"
)

// EnvironmentEmoji tags the environment field of the footer.
const EnvironmentEmoji = "🌐"

// summaryKeywords mark suggestion lines that read like a diff summary.
var summaryKeywords = []string{"Summary", "insertions", "deletion", "Modified", "added", "deleted"}

// Input is everything Compose needs; it does no I/O of its own.
type Input struct {
	Changes     ChangeSet
	DiffSummary string
	Suggestion  string
	// MaxCharacters caps the suggestion in runes; 0 keeps it whole.
	MaxCharacters int

	Env      string
	EnvEmoji string
	Machine  string
	Provider string
	Model    string
	Elapsed  time.Duration

	// CommitNumber is the sequence number of the commit being created.
	CommitNumber int
	Time         time.Time
	Emojis       map[string]string
}

// Compose builds the final commit message: a header naming the machine and
// the changed files, the tagged suggestion lines, the diff summary and an
// identification footer.
func Compose(in Input) string {
	head := "[💻" + in.Machine + in.EnvEmoji + "]"
	pad := strings.Repeat(" ", utf8.RuneCountInString(head)+3)

	suggestion := Truncate(CleanSuggestion(in.Suggestion), in.MaxCharacters)
	info := emoji(in.Emojis, "info")
	summary := emoji(in.Emojis, "summary")

	lines := []string{head + " " + emoji(in.Emojis, "header") + ": " + Summary(in.Changes, in.Emojis)}
	for _, line := range strings.Split(suggestion, "\n") {
		line = replacePrefixes(strings.TrimRight(line, "\r"))
		if strings.TrimSpace(line) == "" {
			continue
		}
		tag := info
		if containsAny(line, summaryKeywords) {
			tag = summary
		}
		lines = append(lines, pad+tag+": "+line)
	}

	if in.DiffSummary != "" && !strings.Contains(suggestion, in.DiffSummary) {
		for _, line := range strings.Split(in.DiffSummary, "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, pad+summary+": "+line)
			}
		}
	}

	lines = append(lines, pad+Footer(in))
	return strings.Join(lines, "\n")
}

// Footer is the identification line closing every message.
func Footer(in Input) string {
	return fmt.Sprintf("🆔: %s | 🕒: %s | %s: %s | 🤖: %s 🧠: %s | ⏱️: %.2f secs",
		CommitNumber(in.CommitNumber), Timestamp(in.Time), EnvironmentEmoji, in.Env,
		in.Provider, in.Model, in.Elapsed.Seconds())
}

// commitNumberWidth is the minimum width of a formatted commit number,
// separators included.
const commitNumberWidth = 11

// CommitNumber zero-pads n and groups its digits by thousands so that the
// result is at least 11 characters wide: 42 becomes "000,000,042".
func CommitNumber(n int) string {
	if n < 0 {
		n = 0
	}
	digits := strconv.Itoa(n)
	k := len(digits)
	for k+(k-1)/3 < commitNumberWidth {
		k++
	}
	digits = strings.Repeat("0", k-len(digits)) + digits

	var b strings.Builder
	lead := k % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < k; i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Timestamp renders t with millisecond precision.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// FormatUsage describes token usage; nil usage renders as "".
func FormatUsage(u *ai.Usage) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("📊 Tokens used: 📝 Prompt=%d, 💬 Response=%d, 🧮 Total=%d",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

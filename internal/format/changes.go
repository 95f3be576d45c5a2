package format

import (
	"path/filepath"
	"strings"

	"github.com/gessage/gcm/internal/config"
)

// ChangeSet groups working-tree paths by the kind of change git reports.
type ChangeSet struct {
	Added   []string
	Changed []string
	Deleted []string
}

func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Deleted) == 0
}

type category struct {
	label string
	key   string
	files []string
}

// categories lists the non-empty groups in Add, Change, Delete order.
func (c ChangeSet) categories() []category {
	all := []category{
		{label: "Add", key: "add", files: c.Added},
		{label: "Change", key: "change", files: c.Changed},
		{label: "Delete", key: "delete", files: c.Deleted},
	}
	out := all[:0]
	for _, cat := range all {
		if len(cat.files) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// ClassifyChanges reads `git status --porcelain` lines. The status is the
// first two columns trimmed: A and ?? are additions, M changes and D
// deletions. Other statuses (renames, copies, conflicts) are ignored.
func ClassifyChanges(lines []string) ChangeSet {
	var cs ChangeSet
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var code, file string
		if len(line) > 3 {
			code = strings.TrimSpace(line[:2])
			file = strings.TrimLeft(line[2:], " \t")
		} else {
			code = strings.TrimSpace(line)
		}
		switch code {
		case "A", "??":
			cs.Added = append(cs.Added, file)
		case "M":
			cs.Changed = append(cs.Changed, file)
		case "D":
			cs.Deleted = append(cs.Deleted, file)
		}
	}
	return cs
}

// FormatFileList quotes each name and joins them as an English list:
// "a", "b" and "c".
func FormatFileList(files []string) string {
	if len(files) == 0 {
		return ""
	}
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = `"` + f + `"`
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
}

// Summary renders the header line body, one emoji-tagged list per category.
func Summary(cs ChangeSet, emojis map[string]string) string {
	var parts []string
	for _, cat := range cs.categories() {
		parts = append(parts, emoji(emojis, cat.key)+": "+FormatFileList(cat.files))
	}
	return strings.Join(parts, "; ")
}

const noDiff = "No diff available."

// BuildPrompt fills {changes} and {diff} in template. Changes are listed by
// base name; an empty diff summary becomes a fixed placeholder.
func BuildPrompt(template string, cs ChangeSet, diffSummary string) string {
	var parts []string
	for _, cat := range cs.categories() {
		names := make([]string, len(cat.files))
		for i, f := range cat.files {
			names[i] = filepath.Base(filepath.FromSlash(f))
		}
		parts = append(parts, cat.label+": "+FormatFileList(names))
	}
	if strings.TrimSpace(diffSummary) == "" {
		diffSummary = noDiff
	}
	if template == "" {
		template = config.DefaultPromptTemplate
	}
	return strings.NewReplacer(
		"{changes}", strings.Join(parts, "; "),
		"{diff}", diffSummary,
	).Replace(template)
}

func emoji(emojis map[string]string, key string) string {
	if e, ok := emojis[key]; ok {
		return e
	}
	return config.DefaultEmojis[key]
}

// Package obsidian reads a vault's Markdown task lines into
// model.ObsidianTask values and writes mutations back in place,
// one file at a time.
package obsidian

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BoweyLou/obssync/internal/model"
)

var (
	taskLineExpr = regexp.MustCompile(`^(\s*)[-*]\s+\[([ xX])\]\s+(.*)$`)
	blockIDExpr  = regexp.MustCompile(`\^([a-zA-Z0-9_-]{4,10})\s*$`)
	dueTokenExpr = regexp.MustCompile(`📅\s*(\d{4}-\d{2}-\d{2})`)
	tagTokenExpr = regexp.MustCompile(`#([[:alnum:]/_-]+)`)
	createdExpr  = regexp.MustCompile(`\[created::\s*([^\]]+)\]`)
	modifiedExpr = regexp.MustCompile(`\[modified::\s*([^\]]+)\]`)

	priorityHighExpr   = regexp.MustCompile(`🔺`)
	priorityMediumExpr = regexp.MustCompile(`🔼`)
	priorityLowExpr    = regexp.MustCompile(`🔽`)
)

// ParsedLine is one parsed task line plus its notes (continuation
// lines) and its position, before block-id assignment.
type ParsedLine struct {
	LineIndex int // 0-based index into the file's lines
	Task      model.ObsidianTask
	HasID     bool
}

// ParseFile splits a Markdown file's content into task lines, capturing
// the indented lines that follow each one as its notes. vaultID and
// filePath are stamped onto every parsed task.
func ParseFile(vaultID, filePath, content string) []ParsedLine {
	lines := strings.Split(content, "\n")
	var out []ParsedLine

	for i := 0; i < len(lines); i++ {
		m := taskLineExpr.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		mark := m[2]
		rest := m[3]

		notes, consumed := collectNotes(lines, i+1)

		task := buildTask(vaultID, filePath, i, mark, rest, notes)
		out = append(out, ParsedLine{LineIndex: i, Task: task, HasID: task.ID != ""})
		i += consumed
	}
	return out
}

// collectNotes gathers indented continuation lines immediately
// following a task line, stopping at the next task line, a blank line,
// or a heading.
func collectNotes(lines []string, start int) (string, int) {
	var notes []string
	consumed := 0
	for i := start; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if taskLineExpr.MatchString(line) {
			break
		}
		if strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#/") {
			// Looks like a heading, not a continuation note.
			if len(line)-len(strings.TrimLeft(line, " \t")) == 0 {
				break
			}
		}
		if line == strings.TrimLeft(line, " \t") {
			// Not indented: does not belong to the task above.
			break
		}
		notes = append(notes, trimmed)
		consumed++
	}
	return strings.Join(notes, "\n"), consumed
}

func buildTask(vaultID, filePath string, lineIndex int, mark, rest, notes string) model.ObsidianTask {
	status := model.StatusTodo
	if mark == "x" || mark == "X" {
		status = model.StatusDone
	}

	id := ""
	if m := blockIDExpr.FindStringSubmatch(rest); m != nil {
		id = m[1]
		rest = blockIDExpr.ReplaceAllString(rest, "")
	}

	var created, modified string
	if m := createdExpr.FindStringSubmatch(rest); m != nil {
		created = strings.TrimSpace(m[1])
	}
	if m := modifiedExpr.FindStringSubmatch(rest); m != nil {
		modified = strings.TrimSpace(m[1])
	}
	rest = createdExpr.ReplaceAllString(rest, "")
	rest = modifiedExpr.ReplaceAllString(rest, "")

	var due *model.Date
	if m := dueTokenExpr.FindStringSubmatch(rest); m != nil {
		if d, err := model.ParseDate(m[1]); err == nil {
			due = &d
		}
		rest = dueTokenExpr.ReplaceAllString(rest, "")
	}

	priority := model.PriorityNone
	switch {
	case priorityHighExpr.MatchString(rest):
		priority = model.PriorityHigh
	case priorityMediumExpr.MatchString(rest):
		priority = model.PriorityMedium
	case priorityLowExpr.MatchString(rest):
		priority = model.PriorityLow
	}
	rest = priorityHighExpr.ReplaceAllString(rest, "")
	rest = priorityMediumExpr.ReplaceAllString(rest, "")
	rest = priorityLowExpr.ReplaceAllString(rest, "")

	tags := extractTags(rest)
	description := stripTags(rest)

	return model.ObsidianTask{
		ID:            id,
		VaultID:       vaultID,
		FilePath:      filePath,
		Line:          lineIndex,
		Description:   description,
		Status:        status,
		Due:           due,
		Priority:      priority,
		Tags:          tags,
		Notes:         notes,
		CreatedAt:     model.ISOTimestamp(created),
		ModifiedAt:    model.ISOTimestamp(modified),
		CreatedAtRaw:  created,
		ModifiedAtRaw: modified,
	}
}

func extractTags(text string) []string {
	matches := tagTokenExpr.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var tags []string
	for _, m := range matches {
		tag := m[1]
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func stripTags(text string) string {
	cleaned := tagTokenExpr.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// RenderLine re-serializes a task back into a single Markdown task line,
// used by Manager.UpdateTask/CreateTask when writing mutations back.
func RenderLine(t model.ObsidianTask) string {
	mark := " "
	if t.Status == model.StatusDone {
		mark = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s", mark, t.Description)
	for _, tag := range t.Tags {
		fmt.Fprintf(&b, " #%s", tag)
	}
	switch t.Priority {
	case model.PriorityHigh:
		b.WriteString(" 🔺")
	case model.PriorityMedium:
		b.WriteString(" 🔼")
	case model.PriorityLow:
		b.WriteString(" 🔽")
	}
	if t.Due != nil {
		fmt.Fprintf(&b, " 📅 %s", t.Due.String())
	}
	if t.CreatedAtRaw != "" {
		fmt.Fprintf(&b, " [created:: %s]", t.CreatedAtRaw)
	}
	if t.ModifiedAtRaw != "" {
		fmt.Fprintf(&b, " [modified:: %s]", t.ModifiedAtRaw)
	}
	if t.ID != "" {
		fmt.Fprintf(&b, " ^%s", t.ID)
	}
	return b.String()
}

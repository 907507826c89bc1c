// Package parser converts diary entries to and from Markdown with YAML
// frontmatter, so they can be edited in any notes app.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lifeone/internal/models"
)

var (
	taskRe = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.*)$`)
	dueRe  = regexp.MustCompile(`\s*\(due:\s*([^)]*)\)\s*$`)
	tagRe  = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)
)

// Frontmatter is the metadata block of an exported entry.
type Frontmatter struct {
	ID        string `yaml:"id,omitempty"`
	Date      string `yaml:"date,omitempty"`
	Group     string `yaml:"group,omitempty"`
	Checklist bool   `yaml:"checklist,omitempty"`
}

// Result is a parsed document. Entry holds the free text with checklist
// lines removed.
type Result struct {
	Frontmatter Frontmatter
	Entry       string
	Tasks       []models.ChecklistItem
	Tags        []string
}

// DiaryEntry turns r into an entry. Ids of checklist items are left empty;
// the store assigns them.
func (r *Result) DiaryEntry() models.DiaryEntry {
	d := models.DiaryEntry{
		ID:          r.Frontmatter.ID,
		Date:        r.Frontmatter.Date,
		Entry:       r.Entry,
		Group:       r.Frontmatter.Group,
		IsChecklist: r.Frontmatter.Checklist || len(r.Tasks) > 0,
	}
	if d.Group == "" && len(r.Tags) > 0 {
		d.Group = r.Tags[0]
	}
	if d.IsChecklist {
		d.ChecklistItems = r.Tasks
	}
	return d
}

// Parse reads a Markdown document. A document without (or with broken)
// frontmatter is treated as body only.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	var (
		text  []string
		tasks []models.ChecklistItem
	)
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		m := taskRe.FindStringSubmatch(line)
		if m == nil {
			text = append(text, line)
			continue
		}
		item := models.ChecklistItem{Completed: m[1] != " ", Text: strings.TrimSpace(m[2])}
		if due := dueRe.FindStringSubmatchIndex(item.Text); due != nil {
			item.DueDate = strings.TrimSpace(item.Text[due[2]:due[3]])
			item.Text = strings.TrimSpace(item.Text[:due[0]])
		}
		if item.Text != "" {
			tasks = append(tasks, item)
		}
	}
	entry := strings.TrimSpace(strings.Join(text, "\n"))

	return &Result{
		Frontmatter: fm,
		Entry:       entry,
		Tasks:       tasks,
		Tags:        extractTags(entry),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body.
func splitFrontmatter(data []byte) (Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return Frontmatter{}, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Frontmatter{}, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return Frontmatter{}, string(data)
	}
	return fm, body
}

// extractTags collects distinct #tags in order of appearance.
func extractTags(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Render writes d as Markdown. Parse(Render(d)) yields d again, apart from
// checklist item ids.
func Render(d models.DiaryEntry) ([]byte, error) {
	fm, err := yaml.Marshal(Frontmatter{ID: d.ID, Date: d.Date, Group: d.Group, Checklist: d.IsChecklist})
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n")
	if d.Entry != "" {
		b.WriteString(d.Entry)
		b.WriteString("\n")
	}
	if d.IsChecklist && len(d.ChecklistItems) > 0 {
		if d.Entry != "" {
			b.WriteString("\n")
		}
		for _, it := range d.ChecklistItems {
			mark := " "
			if it.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s", mark, it.Text)
			if it.DueDate != "" {
				fmt.Fprintf(&b, " (due: %s)", it.DueDate)
			}
			b.WriteString("\n")
		}
	}
	return b.Bytes(), nil
}

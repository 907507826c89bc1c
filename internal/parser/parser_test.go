package parser

import (
	"strings"
	"testing"

	"github.com/starford/lifeone/internal/models"
)

func TestParse_FrontmatterAndChecklist(t *testing.T) {
	input := []byte("---\nid: d1\ndate: 2025-03-10\ngroup: 장보기\n---\n주말 준비\n\n- [ ] 우유\n- [x] 빵 (due: 2025-03-12)\n* [ ] \n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Frontmatter.ID != "d1" || r.Frontmatter.Date != "2025-03-10" || r.Frontmatter.Group != "장보기" {
		t.Errorf("frontmatter = %+v", r.Frontmatter)
	}
	if r.Entry != "주말 준비" {
		t.Errorf("entry = %q", r.Entry)
	}
	if len(r.Tasks) != 2 {
		t.Fatalf("tasks = %+v", r.Tasks)
	}
	if r.Tasks[0].Text != "우유" || r.Tasks[0].Completed {
		t.Errorf("task 0 = %+v", r.Tasks[0])
	}
	if r.Tasks[1].Text != "빵" || !r.Tasks[1].Completed || r.Tasks[1].DueDate != "2025-03-12" {
		t.Errorf("task 1 = %+v", r.Tasks[1])
	}

	d := r.DiaryEntry()
	if !d.IsChecklist || d.Group != "장보기" || len(d.ChecklistItems) != 2 {
		t.Errorf("entry = %+v", d)
	}
}

func TestParse_NoFrontmatterUsesTagAsGroup(t *testing.T) {
	r, err := Parse([]byte("오늘은 산책을 했다 #일상 #건강\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Frontmatter != (Frontmatter{}) {
		t.Errorf("frontmatter = %+v", r.Frontmatter)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "일상" {
		t.Errorf("tags = %v", r.Tags)
	}
	d := r.DiaryEntry()
	if d.Group != "일상" || d.IsChecklist {
		t.Errorf("entry = %+v", d)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Frontmatter != (Frontmatter{}) {
		t.Errorf("expected empty frontmatter on invalid YAML")
	}
	if !strings.Contains(r.Entry, "Body") {
		t.Errorf("entry = %q", r.Entry)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	in := models.DiaryEntry{
		ID: "d1", Date: "2025-03-10", Entry: "할 일", Group: models.TodoGroup, IsChecklist: true,
		ChecklistItems: []models.ChecklistItem{
			{ID: "t1", Text: "보고서", DueDate: "이번 주까지"},
			{ID: "t2", Text: "메일", Completed: true},
		},
	}
	data, err := Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\n") || !strings.Contains(string(data), "- [x] 메일\n") {
		t.Errorf("markdown = %s", data)
	}

	r, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := r.DiaryEntry()
	if out.ID != in.ID || out.Date != in.Date || out.Entry != in.Entry || out.Group != in.Group || !out.IsChecklist {
		t.Errorf("round trip = %+v", out)
	}
	if len(out.ChecklistItems) != 2 || out.ChecklistItems[0].DueDate != "이번 주까지" || !out.ChecklistItems[1].Completed {
		t.Errorf("items = %+v", out.ChecklistItems)
	}
}

func TestRender_PlainEntry(t *testing.T) {
	data, err := Render(models.DiaryEntry{ID: "d2", Date: "2025-03-11", Entry: "메모", Group: "기타"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(data), "checklist") || strings.Contains(string(data), "- [") {
		t.Errorf("markdown = %s", data)
	}
}

package assistant

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/llm"
	"github.com/starford/lifeone/internal/models"
)

//go:embed prompts/system.tmpl
var systemPromptSource string

//go:embed prompts/contract.json
var responseContract string

var systemPromptTemplate = template.Must(template.New("system").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(systemPromptSource))

// Contract returns the response contract the model is asked to follow.
func Contract() string { return responseContract }

// Context is the read-only view of the user's data shown to the model.
type Context struct {
	Contacts   []models.Contact      `json:"contacts"`
	Schedule   []models.ScheduleItem `json:"schedule"`
	Expenses   []models.Expense      `json:"expenses"`
	Diary      []models.DiaryEntry   `json:"diary"`
	Categories []models.Category     `json:"categories"`
}

// Input is one user turn plus everything the model needs to answer it.
type Input struct {
	Model   string
	History []models.ChatMessage // previous turns, oldest first
	Text    string
	Image   *models.ImageRef
	Context Context
	Now     time.Time
}

// HasContent reports whether the turn carries text or an image.
func (in Input) HasContent() bool {
	return strings.TrimSpace(in.Text) != "" || hasImage(in.Image)
}

func hasImage(img *models.ImageRef) bool {
	return img != nil && img.Data != "" && img.MIMEType != ""
}

type systemPromptData struct {
	Now        string
	Categories []string
	Contract   string
	Data       string
}

// RenderSystemPrompt renders the instruction text for ctx at now.
func RenderSystemPrompt(ctx Context, now time.Time) (string, error) {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("assistant: marshal context: %w", err)
	}
	names := make([]string, 0, len(ctx.Categories))
	for _, c := range ctx.Categories {
		names = append(names, c.Name)
	}
	var buf bytes.Buffer
	err = systemPromptTemplate.Execute(&buf, systemPromptData{
		Now:        calendar.PromptTimestamp(now),
		Categories: names,
		Contract:   strings.TrimSpace(responseContract),
		Data:       string(data),
	})
	if err != nil {
		return "", fmt.Errorf("assistant: render system prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildRequest assembles the model request for in. A turn with neither text
// nor image yields apperr.ErrEmptyInput; callers answer it with
// EmptyInputAnswer and never reach the model.
func BuildRequest(in Input) (llm.Request, error) {
	if !in.HasContent() {
		return llm.Request{}, apperr.ErrEmptyInput
	}
	system, err := RenderSystemPrompt(in.Context, in.Now)
	if err != nil {
		return llm.Request{}, err
	}

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range in.History {
		// Local failure notices were never produced by the model.
		if m.IsError {
			continue
		}
		role := llm.RoleUser
		if m.Role == models.RoleModel {
			role = llm.RoleAssistant
		}
		text := m.Text
		if text == "" && m.Image != nil {
			text = "(이미지)"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: text})
	}

	last := llm.Message{Role: llm.RoleUser, Content: strings.TrimSpace(in.Text)}
	if hasImage(in.Image) {
		last.Image = &llm.Image{MIMEType: in.Image.MIMEType, Data: in.Image.Data}
	}
	msgs = append(msgs, last)

	return llm.Request{Model: in.Model, Messages: msgs, ForceJSON: true}, nil
}

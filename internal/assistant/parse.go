package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/starford/lifeone/internal/llm"
	"github.com/starford/lifeone/internal/models"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```")

// ParseResponse extracts the structured reply from raw model output. It never
// fails: output that holds no JSON object becomes a plain answer with empty
// payloads.
func ParseResponse(res llm.Result) Response {
	text := strings.TrimSpace(res.Text)

	resp, ok := decode(text)
	if !ok {
		if block := extractFromCodeBlock(text); block != "" {
			resp, ok = decode(block)
		}
	}
	if !ok {
		if obj := outermostBraces(text); obj != "" {
			resp, ok = decode(obj)
		}
	}
	if !ok {
		if obj := balancedObject(text); obj != "" {
			resp, ok = decode(obj)
		}
	}
	if !ok {
		resp = Response{Answer: text}
	}

	resp.normalize()
	resp.WebSearchSources = mergeSources(resp.WebSearchSources, res.Sources)
	return resp
}

func decode(s string) (Response, bool) {
	if !strings.HasPrefix(s, "{") {
		return Response{}, false
	}
	var r Response
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Response{}, false
	}
	return r, true
}

func extractFromCodeBlock(text string) string {
	m := codeBlockRe.FindStringSubmatch(text)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// outermostBraces returns text from the first '{' to the last '}'.
func outermostBraces(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// balancedObject returns the first brace-balanced object, skipping braces
// inside strings. It recovers replies followed by a second JSON fragment.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func mergeSources(body []models.WebSource, grounding []llm.Source) []models.WebSource {
	out := make([]models.WebSource, 0, len(body)+len(grounding))
	seen := make(map[string]bool)
	add := func(title, uri string) {
		uri = strings.TrimSpace(uri)
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		if strings.TrimSpace(title) == "" {
			title = "Source"
		}
		out = append(out, models.WebSource{Title: title, URI: uri})
	}
	for _, s := range body {
		add(s.Title, s.URI)
	}
	for _, s := range grounding {
		add(s.Title, s.URI)
	}
	return out
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Draft is the structured result of a drafting completion. Question is
// mandatory; a model answer is optional.
type Draft struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

var draftValidate = validator.New(validator.WithRequiredStructEnabled())

// stripFences removes a surrounding markdown code fence, which several
// models add around JSON output no matter what the prompt says.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag on the opening fence line.
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseDraft decodes a completion into a Draft, tolerating markdown fences
// around the JSON body. A syntactically valid object without a question is
// rejected so a bad completion never becomes an empty question record.
func ParseDraft(raw string) (Draft, error) {
	var d Draft
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return Draft{}, fmt.Errorf("parse draft response: %w (raw: %s)", err, raw)
	}
	if err := draftValidate.Struct(d); err != nil {
		return Draft{}, fmt.Errorf("draft response missing question (raw: %s)", raw)
	}
	return d, nil
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Classification places a question in the subject taxonomy.
type Classification struct {
	Subject  string `json:"subject,omitempty"`
	Topic    string `json:"topic,omitempty"`
	SubTopic string `json:"subTopic,omitempty"`
}

// SourceInfo records which exam paper a question came from.
type SourceInfo struct {
	ExamName      string `json:"examName,omitempty"`
	ExamYear      Year   `json:"examYear,omitempty"`
	ExamDateShift string `json:"examDateShift,omitempty"`
}

// Year is an exam year. Banks carry it as a number or a string; values that
// are not a number read as zero.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(f >= 0 && f <= 9999) {
		*y = 0
		return nil
	}
	*y = Year(f)
	return nil
}

// Properties carries difficulty and question type labels.
type Properties struct {
	Difficulty   string `json:"difficulty,omitempty"`
	QuestionType string `json:"questionType,omitempty"`
}

// ExplanationSection is one named block of an explanation. Sections whose
// value is not a string keep it in Raw and show its JSON text as Body.
type ExplanationSection struct {
	Name string
	Body string
	Raw  json.RawMessage
}

// Explanation is an ordered list of named sections. It is encoded as a JSON
// object whose key order is preserved in both directions.
type Explanation []ExplanationSection

func (e Explanation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, section := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(section.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(section.Raw) > 0 {
			if err := json.Compact(&buf, section.Raw); err != nil {
				return nil, err
			}
			continue
		}
		val, err := json.Marshal(section.Body)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Explanation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*e = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("explanation: expected object, got %v", tok)
	}
	out := Explanation{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if bytes.Equal(raw, []byte("null")) {
			continue
		}
		var body string
		if err := json.Unmarshal(raw, &body); err != nil {
			out = append(out, ExplanationSection{Name: key, Body: string(raw), Raw: raw})
			continue
		}
		if body == "" {
			continue
		}
		out = append(out, ExplanationSection{Name: key, Body: body})
	}
	*e = out
	return nil
}

// Section returns the body of the named section, if present.
func (e Explanation) Section(name string) (string, bool) {
	for _, s := range e {
		if s.Name == name {
			return s.Body, true
		}
	}
	return "", false
}

// Question is an immutable multiple-choice record supplied by the filtering collaborator.
type Question struct {
	ID             string         `json:"id" validate:"required"`
	DisplayID      string         `json:"displayId,omitempty"`
	Classification Classification `json:"classification"`
	Source         SourceInfo     `json:"sourceInfo"`
	Properties     Properties     `json:"properties"`
	Prompt         string         `json:"question"`
	PromptHi       string         `json:"question_hi,omitempty"`
	Options        []string       `json:"options" validate:"required,min=2,dive,required"`
	OptionsHi      []string       `json:"options_hi,omitempty"`
	CorrectOption  string         `json:"correct" validate:"required"`
	Tags           []string       `json:"tags,omitempty"`
	Explanation    Explanation    `json:"explanation,omitempty"`
}

// SortKey returns the identifier used for the default composite ordering.
func (q Question) SortKey() string {
	if q.DisplayID != "" {
		return q.DisplayID
	}
	return q.ID
}

// Validate reports ErrMalformedQuestion when options are missing or the
// correct option does not match exactly one option.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedQuestion, q.ID, err)
	}
	if _, err := q.CorrectIndex(); err != nil {
		return err
	}
	return nil
}

// CorrectIndex resolves CorrectOption to its position in Options.
func (q Question) CorrectIndex() (int, error) {
	want := NormalizeOption(q.CorrectOption)
	found := -1
	for i, opt := range q.Options {
		if NormalizeOption(opt) != want {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("%w: %s: correct option matches more than one option", ErrMalformedQuestion, q.ID)
		}
		found = i
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: %s: correct option not among options", ErrMalformedQuestion, q.ID)
	}
	return found, nil
}

// NormalizeOption folds case and collapses whitespace for option comparison.
func NormalizeOption(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

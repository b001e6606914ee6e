package plan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrIndexOutOfRange = errors.New("step index out of range")
	ErrUnknownField    = errors.New("unknown step field")
)

// Field names a user-editable Step field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// ParseField maps user input onto an editable field.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldTitle, FieldDescription:
		return Field(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Step represents a single unit of the decomposed task.
type Step struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	GeneratedContent    string `json:"generated_content"`
	IsGeneratingContent bool   `json:"is_generating_content"`
}

// Steps is an ordered step sequence. Every operation returns a new slice and
// never writes through to the receiver, so older snapshots stay valid.
type Steps []Step

// New builds a fresh sequence with newly assigned IDs and empty content.
func New(drafts []Draft) Steps {
	out := make(Steps, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, Step{
			ID:          uuid.NewString(),
			Title:       d.Title,
			Description: d.Description,
		})
	}
	return out
}

// Draft is a step candidate before it has an identity.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s Steps) Clone() Steps {
	if s == nil {
		return nil
	}
	out := make(Steps, len(s))
	copy(out, s)
	return out
}

// Move relocates the element at from to index to; all other elements keep
// their relative order.
func (s Steps) Move(from, to int) (Steps, error) {
	if err := s.check(from); err != nil {
		return nil, err
	}
	if err := s.check(to); err != nil {
		return nil, err
	}
	out := s.Clone()
	if from == to {
		return out, nil
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(Steps{moved}, out[to:]...)...)
	return out, nil
}

// SetField replaces one editable field of one step.
func (s Steps) SetField(index int, field Field, value string) (Steps, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	out := s.Clone()
	switch field {
	case FieldTitle:
		out[index].Title = value
	case FieldDescription:
		out[index].Description = value
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return out, nil
}

// MarkGenerating flags exactly one step as in flight and clears the flag on
// every other step.
func (s Steps) MarkGenerating(index int) (Steps, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	out := s.Clone()
	for i := range out {
		out[i].IsGeneratingContent = i == index
	}
	return out, nil
}

// WithContent stores generated content and clears the in-flight flag.
func (s Steps) WithContent(index int, content string) (Steps, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	out := s.Clone()
	out[index].GeneratedContent = content
	out[index].IsGeneratingContent = false
	return out, nil
}

// Generating returns the index of the in-flight step, or -1.
func (s Steps) Generating() int {
	for i, st := range s {
		if st.IsGeneratingContent {
			return i
		}
	}
	return -1
}

func (s Steps) check(index int) error {
	if index < 0 || index >= len(s) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s))
	}
	return nil
}

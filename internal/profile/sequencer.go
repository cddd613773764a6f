package profile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names one onboarding question.
type Field string

const (
	FieldName          Field = "name"
	FieldAge           Field = "age"
	FieldWeight        Field = "weight"
	FieldHeight        Field = "height"
	FieldGoals         Field = "goals"
	FieldGender        Field = "gender"
	FieldActivityLevel Field = "activity_level"
	FieldDietaryPrefs  Field = "dietary_prefs"
)

// Reason explains why an answer was rejected.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonNotANumber  Reason = "not_a_number"
	ReasonOutOfRange  Reason = "out_of_range"
	ReasonNotAnOption Reason = "not_an_option"
)

// ValidationError is returned by Validate for a rejected answer.
type ValidationError struct {
	Field  Field
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Value is a parsed answer. Only the member matching the field kind is set.
type Value struct {
	Text  string
	Int   int
	Float float64
}

type rule func(raw string) (Value, Reason)

// Sequencer is the ordered list of onboarding fields with their rules.
type Sequencer struct {
	order []Field
	rules map[Field]rule
}

// NewSequencer returns the base questionnaire, or the extended one that also
// asks gender, activity level and dietary preferences.
func NewSequencer(extended bool) *Sequencer {
	s := &Sequencer{
		order: []Field{FieldName, FieldAge, FieldWeight, FieldHeight, FieldGoals},
		rules: map[Field]rule{
			FieldName:          nonEmpty,
			FieldAge:           intRange(10, 100),
			FieldWeight:        floatRange(20, 300),
			FieldHeight:        intRange(100, 250),
			FieldGoals:         nonEmpty,
			FieldGender:        oneOf(genders),
			FieldActivityLevel: oneOf(activityLevels),
			FieldDietaryPrefs:  nonEmpty,
		},
	}
	if extended {
		s.order = append(s.order, FieldGender, FieldActivityLevel, FieldDietaryPrefs)
	}
	return s
}

// Fields returns the question order.
func (s *Sequencer) Fields() []Field {
	return append([]Field(nil), s.order...)
}

// First returns the first field to ask.
func (s *Sequencer) First() Field { return s.order[0] }

// Next returns the field after f. ok is false when f was the last one.
func (s *Sequencer) Next(f Field) (next Field, ok bool) {
	for i, x := range s.order {
		if x == f && i+1 < len(s.order) {
			return s.order[i+1], true
		}
	}
	return "", false
}

// Validate parses raw as an answer for field.
func (s *Sequencer) Validate(field Field, raw string) (Value, error) {
	r, ok := s.rules[field]
	if !ok {
		return Value{}, fmt.Errorf("unknown field: %s", field)
	}
	v, reason := r(strings.TrimSpace(raw))
	if reason != "" {
		return Value{}, &ValidationError{Field: field, Reason: reason}
	}
	return v, nil
}

func nonEmpty(raw string) (Value, Reason) {
	if raw == "" {
		return Value{}, ReasonEmpty
	}
	return Value{Text: raw}, ""
}

func intRange(lo, hi int) rule {
	return func(raw string) (Value, Reason) {
		if raw == "" {
			return Value{}, ReasonEmpty
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, ReasonNotANumber
		}
		if n < lo || n > hi {
			return Value{}, ReasonOutOfRange
		}
		return Value{Int: n}, ""
	}
}

func floatRange(lo, hi float64) rule {
	return func(raw string) (Value, Reason) {
		if raw == "" {
			return Value{}, ReasonEmpty
		}
		f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil || math.IsNaN(f) {
			return Value{}, ReasonNotANumber
		}
		if f < lo || f > hi {
			return Value{}, ReasonOutOfRange
		}
		return Value{Float: f}, ""
	}
}

var genders = map[string]string{
	"male": "male", "m": "male", "man": "male",
	"female": "female", "f": "female", "woman": "female",
	"other": "other",
}

var activityLevels = map[string]string{
	"sedentary":   "sedentary",
	"light":       "light",
	"moderate":    "moderate",
	"active":      "active",
	"very active": "very active",
}

func oneOf(options map[string]string) rule {
	return func(raw string) (Value, Reason) {
		if raw == "" {
			return Value{}, ReasonEmpty
		}
		v, ok := options[strings.ToLower(strings.Join(strings.Fields(raw), " "))]
		if !ok {
			return Value{}, ReasonNotAnOption
		}
		return Value{Text: v}, ""
	}
}

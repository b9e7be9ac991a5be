package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ValueKind tags the shape held by an AnswerValue.
type ValueKind uint8

const (
	ValueAbsent ValueKind = iota
	ValueSingle
	ValueSet
)

// AnswerValue is either a single string or a set of strings.
// On the wire it is a JSON string, a JSON array of strings, or null.
type AnswerValue struct {
	Kind   ValueKind
	Single string
	Set    []string
}

// SingleValue wraps one string.
func SingleValue(s string) AnswerValue {
	return AnswerValue{Kind: ValueSingle, Single: s}
}

// SetValue wraps a set of strings. Order is kept as given.
func SetValue(items ...string) AnswerValue {
	if items == nil {
		items = []string{}
	}
	return AnswerValue{Kind: ValueSet, Set: items}
}

// IsAbsent reports whether no value was supplied.
func (v AnswerValue) IsAbsent() bool {
	return v.Kind == ValueAbsent
}

// Strings coerces the value to a list: a single value becomes a one-element list.
func (v AnswerValue) Strings() []string {
	switch v.Kind {
	case ValueSingle:
		return []string{v.Single}
	case ValueSet:
		return v.Set
	}
	return nil
}

// Scalar returns the value as one string. A set qualifies only when it holds exactly one item.
func (v AnswerValue) Scalar() (string, bool) {
	switch v.Kind {
	case ValueSingle:
		return v.Single, true
	case ValueSet:
		if len(v.Set) == 1 {
			return v.Set[0], true
		}
	}
	return "", false
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueSingle:
		return json.Marshal(v.Single)
	case ValueSet:
		if v.Set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Set)
	}
	return []byte("null"), nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = SingleValue(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("answer must be a string or an array of strings: %w", err)
		}
		*v = SetValue(items...)
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings")
}

// AnswerKey is the stored ground truth of a question. Its shape follows Type:
// multiple-choice and text hold a single value, checkbox holds a set of option IDs.
type AnswerKey struct {
	Type  QuestionType
	Value AnswerValue
}

// MultipleChoiceKey builds the key of a multiple-choice question.
func MultipleChoiceKey(optionID string) AnswerKey {
	return AnswerKey{Type: QuestionTypeMultipleChoice, Value: SingleValue(optionID)}
}

// CheckboxKey builds the key of a checkbox question.
func CheckboxKey(optionIDs ...string) AnswerKey {
	return AnswerKey{Type: QuestionTypeCheckbox, Value: SetValue(optionIDs...)}
}

// TextKey builds the key of a free-text question.
func TextKey(answer string) AnswerKey {
	return AnswerKey{Type: QuestionTypeText, Value: SingleValue(answer)}
}

// NewAnswerKey normalizes a submitted correct answer to the shape required by t.
// It returns false when the value cannot be expressed for that type.
func NewAnswerKey(t QuestionType, v AnswerValue) (AnswerKey, bool) {
	switch t {
	case QuestionTypeMultipleChoice:
		s, ok := v.Scalar()
		if !ok || s == "" {
			return AnswerKey{}, false
		}
		return MultipleChoiceKey(s), true
	case QuestionTypeCheckbox:
		ids := v.Strings()
		if len(ids) == 0 {
			return AnswerKey{}, false
		}
		return CheckboxKey(dedupe(ids)...), true
	case QuestionTypeText:
		s, ok := v.Scalar()
		if !ok || s == "" {
			return AnswerKey{}, false
		}
		return TextKey(s), true
	}
	return AnswerKey{}, false
}

// OptionIDs lists the option IDs referenced by the key. Text keys reference none.
func (k AnswerKey) OptionIDs() []string {
	if k.Type == QuestionTypeText {
		return nil
	}
	return k.Value.Strings()
}

// Equal compares two keys; checkbox keys compare as sets.
func (k AnswerKey) Equal(other AnswerKey) bool {
	if k.Type != other.Type {
		return false
	}
	if k.Type == QuestionTypeCheckbox {
		a, b := slices.Clone(k.Value.Strings()), slices.Clone(other.Value.Strings())
		slices.Sort(a)
		slices.Sort(b)
		return slices.Equal(a, b)
	}
	x, okX := k.Value.Scalar()
	y, okY := other.Value.Scalar()
	return okX == okY && x == y
}

// MarshalJSON emits the key in its API shape: a string or an array of option IDs.
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	return k.Value.MarshalJSON()
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

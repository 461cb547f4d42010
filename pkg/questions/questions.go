// Package questions encodes and decodes the questionnaire a guild shows to
// applicants.
//
// The stored form is a JSON array of prompt strings. A prompt that starts with
// OptionalMarker is optional. Parsing keeps the spacing after the marker so a
// stored set serializes back unchanged.
package questions

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// OptionalMarker flags a prompt as optional when it leads the raw text
const OptionalMarker = "(*?)"

const (
	// MaxQuestions is the number of prompts the configuration modal offers
	MaxQuestions = 5
	// MaxLabelLength is the longest label Discord accepts for a text input
	MaxLabelLength = 45
)

// Question is a single decoded prompt
type Question struct {
	Text     string `json:"text" bson:"text"`
	Optional bool   `json:"optional" bson:"optional"`

	// marker is the stored prefix when it differs from "(*?) "
	marker string
}

// Raw returns the prompt as it is stored, marker included
func (q Question) Raw() string {
	return encode(q)
}

// Label returns the prompt text trimmed to what a text input can display
func (q Question) Label() string {
	r := []rune(q.Text)
	if len(r) > MaxLabelLength {
		return string(r[:MaxLabelLength])
	}
	return q.Text
}

// decode turns one raw stored prompt into a Question
func decode(raw string) Question {
	if !strings.HasPrefix(raw, OptionalMarker) {
		return Question{Text: raw}
	}
	text := strings.TrimLeft(strings.TrimPrefix(raw, OptionalMarker), " \t\r\n")
	q := Question{Text: text, Optional: true}
	if prefix := raw[:len(raw)-len(text)]; prefix != canonicalPrefix {
		q.marker = prefix
	}
	return q
}

const canonicalPrefix = OptionalMarker + " "

// encode is the raw form of a Question. Decoded prompts keep the spacing
// they were stored with; built ones use a single space after the marker.
func encode(q Question) string {
	if !q.Optional {
		return q.Text
	}
	if q.marker != "" {
		return q.marker + q.Text
	}
	return canonicalPrefix + q.Text
}

// Parse decodes a stored question set. Anything that is not a JSON array of
// strings yields an empty set.
func Parse(serialized string) []Question {
	var raw []string
	if err := json.Unmarshal([]byte(serialized), &raw); err != nil {
		return []Question{}
	}

	out := make([]Question, 0, len(raw))
	for _, r := range raw {
		out = append(out, decode(r))
	}
	return out
}

// Serialize encodes a question set into its stored form
func Serialize(set []Question) string {
	raw := make([]string, 0, len(set))
	for _, q := range set {
		raw = append(raw, encode(q))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// FromInput builds a set from raw moderator input: blanks are skipped,
// whitespace trimmed, and at most MaxQuestions prompts kept.
func FromInput(inputs []string) []Question {
	out := make([]Question, 0, MaxQuestions)
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		out = append(out, decode(in))
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

// AlignAnswers returns answers index-aligned to the set: missing entries
// become empty strings and extras are dropped.
func AlignAnswers(set []Question, answers []string) []string {
	out := make([]string, len(set))
	copy(out, answers)
	return out
}

// EncodeAnswers stores an answer list as a JSON array
func EncodeAnswers(answers []string) string {
	if answers == nil {
		answers = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(answers); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// DecodeAnswers reads an answer list back, tolerating malformed input
func DecodeAnswers(serialized string) []string {
	var out []string
	if err := json.Unmarshal([]byte(serialized), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

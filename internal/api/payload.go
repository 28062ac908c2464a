package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the variant held by a Payload.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDocument:
		return "document"
	default:
		return "null"
	}
}

// Payload is an item's data column: a string, a number or a JSON document
// (object or array). Documents keep numbers as json.Number.
type Payload struct {
	Kind Kind
	Str  string
	Num  json.Number
	Doc  any
}

// StringPayload wraps s.
func StringPayload(s string) Payload { return Payload{Kind: KindString, Str: s} }

// NumberPayload wraps n.
func NumberPayload(n json.Number) Payload { return Payload{Kind: KindNumber, Num: n} }

// FromValue classifies a decoded JSON value.
func FromValue(v any) Payload {
	switch t := v.(type) {
	case nil:
		return Payload{}
	case string:
		return StringPayload(t)
	case json.Number:
		return NumberPayload(t)
	case float64:
		return NumberPayload(json.Number(fmt.Sprint(t)))
	case int:
		return NumberPayload(json.Number(fmt.Sprint(t)))
	case bool:
		// Booleans only show up inside documents; keep them as documents so
		// they render as JSON.
		return Payload{Kind: KindDocument, Doc: t}
	default:
		return Payload{Kind: KindDocument, Doc: t}
	}
}

// ParsePayload decodes raw JSON into a Payload.
func ParsePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return FromValue(v), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePayload(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// Value returns the underlying decoded value.
func (p Payload) Value() any {
	switch p.Kind {
	case KindString:
		return p.Str
	case KindNumber:
		return p.Num
	case KindDocument:
		return p.Doc
	default:
		return nil
	}
}

// IsZero reports whether the payload is null.
func (p Payload) IsZero() bool {
	return p.Kind == KindNull
}

// String renders the payload on one line.
func (p Payload) String() string {
	switch p.Kind {
	case KindString:
		return p.Str
	case KindNumber:
		return p.Num.String()
	case KindNull:
		return "null"
	}
	b, err := json.Marshal(p.Doc)
	if err != nil {
		return fmt.Sprintf("%v", p.Doc)
	}
	return string(b)
}

// Pretty renders the payload as indented JSON.
func (p Payload) Pretty() string {
	if p.Kind != KindDocument {
		return p.String()
	}
	b, err := json.MarshalIndent(p.Doc, "", "  ")
	if err != nil {
		return p.String()
	}
	return string(b)
}

// Preview returns at most n runes of the one-line rendering.
func (p Payload) Preview(n int) string {
	s := strings.ReplaceAll(p.String(), "\n", " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

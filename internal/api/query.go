package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
)

var (
	// ErrInvalidQuery is returned for a path that does not parse.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoMatch is returned when a valid path selects nothing.
	ErrNoMatch = errors.New("no match")
)

// Query evaluates a JSONPath expression against the payload and returns the
// first match. Array members come back in order; the order of object
// members selected by a wildcard or descent is unspecified. A path without
// a leading $ is taken relative to the root.
func (p Payload) Query(path string) (Payload, error) {
	expr, err := compilePath(path)
	if err != nil {
		return Payload{}, err
	}
	if expr == nil {
		return p, nil
	}
	got := expr.Get(p.Value())
	if len(got) == 0 {
		return Payload{}, fmt.Errorf("%q: %w", path, ErrNoMatch)
	}
	return FromValue(got[0]), nil
}

// QueryOrRoot is Query with the failure mode the dashboard wants: any error
// yields the unqueried payload.
func (p Payload) QueryOrRoot(path string) Payload {
	if strings.TrimSpace(path) == "" {
		return p
	}
	v, err := p.Query(path)
	if err != nil {
		return p
	}
	return v
}

// compilePath parses path, anchoring relative paths at the root. A nil
// expression selects the root itself.
func compilePath(path string) (jp.Expr, error) {
	p := strings.TrimSpace(path)
	switch {
	case p == "" || p == "$":
		return nil, nil
	case p[0] == '$':
	case p[0] == '.' || p[0] == '[':
		p = "$" + p
	default:
		p = "$." + p
	}
	expr, err := jp.ParseString(p)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", path, err, ErrInvalidQuery)
	}
	return expr, nil
}

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bracket is one inclusive age upper bound and the label catalog rows use for it.
type Bracket struct {
	UpTo  int    `yaml:"up_to"`
	Label string `yaml:"label"`
}

// BracketTable maps an estimated age onto a catalog age_bracket label.
// Ages above the last bound fall into the catch-all label.
type BracketTable struct {
	brackets []Bracket
	other    string
}

var ErrInvalidBrackets = errors.New("invalid age bracket table")

func NewBracketTable(brackets []Bracket, other string) (BracketTable, error) {
	if len(brackets) == 0 {
		return BracketTable{}, fmt.Errorf("%w: at least one bracket is required", ErrInvalidBrackets)
	}
	other = strings.TrimSpace(other)
	if other == "" {
		return BracketTable{}, fmt.Errorf("%w: catch-all label is required", ErrInvalidBrackets)
	}
	seen := map[string]struct{}{other: {}}
	out := make([]Bracket, 0, len(brackets))
	for i, b := range brackets {
		label := strings.TrimSpace(b.Label)
		if label == "" {
			return BracketTable{}, fmt.Errorf("%w: bracket %d has an empty label", ErrInvalidBrackets, i)
		}
		if _, dup := seen[label]; dup {
			return BracketTable{}, fmt.Errorf("%w: duplicate label %q", ErrInvalidBrackets, label)
		}
		seen[label] = struct{}{}
		if b.UpTo < 0 {
			return BracketTable{}, fmt.Errorf("%w: bracket %q has a negative bound", ErrInvalidBrackets, label)
		}
		if i > 0 && b.UpTo <= out[i-1].UpTo {
			return BracketTable{}, fmt.Errorf("%w: bound %d of %q is not above %d", ErrInvalidBrackets, b.UpTo, label, out[i-1].UpTo)
		}
		out = append(out, Bracket{UpTo: b.UpTo, Label: label})
	}
	return BracketTable{brackets: out, other: other}, nil
}

func mustBracketTable(brackets []Bracket, other string) BracketTable {
	t, err := NewBracketTable(brackets, other)
	if err != nil {
		panic(err)
	}
	return t
}

// Label returns the label of the first bracket whose bound is >= age.
// Negative ages are treated as 0.
func (t BracketTable) Label(age int) string {
	if age < 0 {
		age = 0
	}
	for _, b := range t.brackets {
		if age <= b.UpTo {
			return b.Label
		}
	}
	return t.other
}

// Labels lists every label in bound order, catch-all last.
func (t BracketTable) Labels() []string {
	out := make([]string, 0, len(t.brackets)+1)
	for _, b := range t.brackets {
		out = append(out, b.Label)
	}
	return append(out, t.other)
}

func (t BracketTable) Other() string { return t.other }

type bracketFile struct {
	Brackets []Bracket `yaml:"brackets"`
	Other    string    `yaml:"other"`
}

// ParseBracketTable reads a table of the form
//
//	brackets:
//	  - {up_to: 20, label: "0-20"}
//	other: 기타
func ParseBracketTable(data []byte) (BracketTable, error) {
	var f bracketFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return BracketTable{}, fmt.Errorf("%w: %v", ErrInvalidBrackets, err)
	}
	return NewBracketTable(f.Brackets, f.Other)
}

func LoadBracketTable(path string) (BracketTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BracketTable{}, fmt.Errorf("read bracket table: %w", err)
	}
	return ParseBracketTable(data)
}

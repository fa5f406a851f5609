// Package params provides the live-tunable parameter store that drives the
// growth simulation.
//
// A Store is an ordered set of named float values with a selection cursor.
// Hosts move the cursor and nudge the selected value; the simulation reads
// values through GetOr so a missing key never fails.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is a single named parameter.
type Entry struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`

	// Step is the amount a single increase/decrease command changes Value.
	// Zero means the host's default step.
	Step float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

// Store is an ordered mapping of parameter names to values with a cursor.
// It is not safe for concurrent use.
type Store struct {
	values   map[string]float64
	steps    map[string]float64
	keys     []string
	selected int
}

// New creates a store holding entries in the given order. Later duplicates
// overwrite the value of an earlier entry but keep its position.
func New(entries ...Entry) *Store {
	s := &Store{
		values: make(map[string]float64, len(entries)),
		steps:  make(map[string]float64, len(entries)),
	}
	for _, e := range entries {
		s.Set(e.Name, e.Value)
		if e.Step != 0 {
			s.steps[e.Name] = e.Step
		}
	}
	return s
}

// GetOr returns the value stored for key, or def if the key is absent.
func (s *Store) GetOr(key string, def float64) float64 {
	if s == nil {
		return def
	}
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set stores v under key. Unknown keys are appended to the ordering.
func (s *Store) Set(key string, v float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
		s.steps = make(map[string]float64)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Len returns the number of parameters.
func (s *Store) Len() int {
	return len(s.keys)
}

// SelectNext moves the cursor forward, wrapping at the end.
func (s *Store) SelectNext() {
	if len(s.keys) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.keys)
}

// SelectPrevious moves the cursor backward, wrapping at the start.
func (s *Store) SelectPrevious() {
	if len(s.keys) == 0 {
		return
	}
	s.selected = (s.selected - 1 + len(s.keys)) % len(s.keys)
}

// AdjustSelected adds delta to the selected parameter.
func (s *Store) AdjustSelected(delta float64) {
	if len(s.keys) == 0 {
		return
	}
	s.values[s.keys[s.selected]] += delta
}

// Selected returns the selected parameter name and value.
// ok is false when the store is empty.
func (s *Store) Selected() (name string, value float64, ok bool) {
	if len(s.keys) == 0 {
		return "", 0, false
	}
	name = s.keys[s.selected]
	return name, s.values[name], true
}

// SelectedIndex returns the cursor position, or -1 when the store is empty.
func (s *Store) SelectedIndex() int {
	if len(s.keys) == 0 {
		return -1
	}
	return s.selected
}

// SelectedStep returns the adjustment step of the selected parameter,
// falling back to def when the entry declares none.
func (s *Store) SelectedStep(def float64) float64 {
	if len(s.keys) == 0 {
		return def
	}
	if step, ok := s.steps[s.keys[s.selected]]; ok {
		return step
	}
	return def
}

// Entries returns an ordered copy of every parameter.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		entries = append(entries, Entry{Name: k, Value: s.values[k], Step: s.steps[k]})
	}
	return entries
}

// Clone returns an independent copy of the store, including the cursor.
func (s *Store) Clone() *Store {
	c := New(s.Entries()...)
	c.selected = s.selected
	return c
}

// String implements fmt.Stringer for debug output.
func (s *Store) String() string {
	out := "params{"
	for i, k := range s.keys {
		if i > 0 {
			out += " "
		}
		marker := ""
		if i == s.selected {
			marker = "*"
		}
		out += fmt.Sprintf("%s%s=%.3f", marker, k, s.values[k])
	}
	return out + "}"
}

// Override returns a copy of entries with the named values replaced.
// Every override must name an existing entry.
func Override(entries []Entry, overrides map[string]float64) ([]Entry, error) {
	out := make([]Entry, len(entries))
	copy(out, entries)

	index := make(map[string]int, len(out))
	for i, e := range out {
		index[e.Name] = i
	}
	for name, v := range overrides {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		out[i].Value = v
	}
	return out, nil
}

// ParseAssignment parses "name=value".
func ParseAssignment(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("invalid parameter %q (want name=value)", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return name, v, nil
}

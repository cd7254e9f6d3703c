package model

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// CustomerSet is a set of customer identifiers. It preserves the union
// semantics of the rollup exactly: a customer active on multiple days or in
// multiple boundaries counts once per union, never per row.
type CustomerSet map[string]struct{}

// NewCustomerSet builds a set from ids.
func NewCustomerSet(ids ...string) CustomerSet {
	s := make(CustomerSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id; empty ids are ignored.
func (s CustomerSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Union inserts every member of other into s.
func (s CustomerSet) Union(other CustomerSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Len returns the set cardinality.
func (s CustomerSet) Len() int { return len(s) }

// Values returns the members sorted ascending for deterministic output.
func (s CustomerSet) Values() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON writes the set as a sorted array.
func (s CustomerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON reads an array of ids.
func (s *CustomerSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return eris.Wrap(err, "model: decode customer set")
	}
	set := make(CustomerSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	*s = set
	return nil
}

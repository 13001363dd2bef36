package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// StructureAspectSuffix is appended to "<schema>_structure" accumulator keys
// in JSON.
const StructureAspectSuffix = "_aspect"

const structureSuffix = "_structure"

// PreferredStructures is the heterogeneous preferredStructures mapping.
// "<schema>_structure" keys hold ranked exemplar lists; every other key holds
// an accumulator. On the wire both live in a single JSON object.
//
// The structure-aspect accumulator AspectKey(schema, Structure) shares its
// name with the exemplar list StructureKey(schema). On the wire every
// accumulator whose key ends in "_structure" is written under
// key+StructureAspectSuffix and renamed back when decoded.
type PreferredStructures struct {
	Accumulators map[string]*Accumulator
	Exemplars    map[string][]Exemplar
}

// NewPreferredStructures returns an empty mapping.
func NewPreferredStructures() PreferredStructures {
	return PreferredStructures{
		Accumulators: make(map[string]*Accumulator),
		Exemplars:    make(map[string][]Exemplar),
	}
}

// Keys returns every key in sorted order.
func (p PreferredStructures) Keys() []string {
	keys := make([]string, 0, len(p.Accumulators)+len(p.Exemplars))
	for k := range p.Accumulators {
		keys = append(keys, k)
	}
	for k := range p.Exemplars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (p PreferredStructures) Len() int {
	return len(p.Accumulators) + len(p.Exemplars)
}

// Accumulator returns the accumulator for key, creating it when absent.
func (p *PreferredStructures) Accumulator(key string) *Accumulator {
	if p.Accumulators == nil {
		p.Accumulators = make(map[string]*Accumulator)
	}
	acc, ok := p.Accumulators[key]
	if !ok {
		acc = &Accumulator{}
		p.Accumulators[key] = acc
	}
	return acc
}

// Clone returns a deep copy.
func (p PreferredStructures) Clone() PreferredStructures {
	c := NewPreferredStructures()
	for k, v := range p.Accumulators {
		acc := *v
		acc.Tags = cloneStrings(v.Tags)
		c.Accumulators[k] = &acc
	}
	for k, list := range p.Exemplars {
		if list == nil {
			c.Exemplars[k] = nil
			continue
		}
		out := make([]Exemplar, len(list))
		for i, ex := range list {
			out[i] = ex.clone()
		}
		c.Exemplars[k] = out
	}
	return c
}

func (e Exemplar) clone() Exemplar {
	c := e
	c.Tags = cloneStrings(e.Tags)
	c.Structure.Keys = cloneStrings(e.Structure.Keys)
	c.Structure.Patterns = cloneStrings(e.Structure.Patterns)
	if e.Structure.KeyCount != nil {
		n := *e.Structure.KeyCount
		c.Structure.KeyCount = &n
	}
	if e.Structure.Length != nil {
		n := *e.Structure.Length
		c.Structure.Length = &n
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

// wireKey is the JSON key for the accumulator stored under key.
func wireKey(key string) string {
	if strings.HasSuffix(key, structureSuffix) {
		return key + StructureAspectSuffix
	}
	return key
}

// MarshalJSON merges both maps into one object.
func (p PreferredStructures) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, p.Len())
	for k, v := range p.Accumulators {
		merged[wireKey(k)] = v
	}
	for k, v := range p.Exemplars {
		if v == nil {
			v = []Exemplar{}
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits entries by shape: arrays are exemplar lists, objects
// are accumulators.
func (p *PreferredStructures) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = NewPreferredStructures()
	for k, v := range raw {
		trimmed := bytes.TrimSpace(v)
		switch {
		case bytes.HasPrefix(trimmed, []byte("[")):
			var list []Exemplar
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return fmt.Errorf("preferredStructures[%s]: %w", k, err)
			}
			p.Exemplars[k] = list
		case bytes.HasPrefix(trimmed, []byte("{")):
			var acc Accumulator
			if err := json.Unmarshal(trimmed, &acc); err != nil {
				return fmt.Errorf("preferredStructures[%s]: %w", k, err)
			}
			key := k
			if base := strings.TrimSuffix(k, StructureAspectSuffix); base != k && strings.HasSuffix(base, structureSuffix) {
				key = base
			}
			p.Accumulators[key] = &acc
		}
	}
	return nil
}

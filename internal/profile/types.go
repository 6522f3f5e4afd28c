package profile

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Profile is the résumé document the assistant answers from. The decoded
// document is kept whole, nested objects and value types included, and is
// serialized back as-is. Only the owner's name is read out of it.
type Profile struct {
	Name string `validate:"required"`

	doc map[string]any
}

// New wraps an already-decoded profile document. Name is taken from the
// document's "name" key when it is a string.
func New(doc map[string]any) *Profile {
	p := &Profile{doc: doc}
	if name, ok := doc["name"].(string); ok {
		p.Name = strings.TrimSpace(name)
	}
	return p
}

// Get returns the top-level value stored under key.
func (p *Profile) Get(key string) (any, bool) {
	v, ok := p.doc[key]
	return v, ok
}

func (p *Profile) set(key string, v any) {
	if p.doc == nil {
		p.doc = map[string]any{}
	}
	p.doc[key] = v
}

// MarshalJSON writes the document back out. encoding/json sorts map keys at
// every level, so identical profiles always serialize to identical bytes.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.doc)+1)
	for k, v := range p.doc {
		out[k] = v
	}
	if _, ok := out["name"]; !ok && p.Name != "" {
		out["name"] = p.Name
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps numbers in their source form (3.90 stays 3.90) and
// nulls as nulls.
func (p *Profile) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	*p = *New(doc)
	return nil
}

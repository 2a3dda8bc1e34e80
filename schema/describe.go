package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one line of a rendered description. Nested records carry Fields instead of Text.
type Entry struct {
	Name   string
	Text   string
	Fields Description
}

// Description keeps field declaration order when rendered as JSON.
type Description []Entry

func (d Description) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if e.Fields != nil {
			val, err = e.Fields.MarshalJSON()
		} else {
			val, err = json.Marshal(e.Text)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func describeText(description string) string {
	if description == "" {
		return "No description provided."
	}
	return description
}

func (r *Registry) describe(s Schema) (Description, error) {
	d := make(Description, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Type != FIELD_TYPE_OBJECT {
			d = append(d, Entry{Name: f.Name, Text: fmt.Sprintf("Description: %s. Type: %s", describeText(f.Description), f.Type)})
			continue
		}
		members, err := r.members(f)
		if err != nil {
			return nil, err
		}
		nested := make(Description, 0, len(members))
		for _, m := range members {
			nested = append(nested, Entry{Name: m.Name, Text: fmt.Sprintf("Description: %s Data Type: %s", describeText(m.Description), m.Type)})
		}
		d = append(d, Entry{Name: f.Name, Fields: nested})
	}
	return d, nil
}

// Describe renders the named schema as field name to "description + type" text,
// one level deep, ready to be embedded in a system prompt.
func (r *Registry) Describe(name string) (Description, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return r.describe(s)
}

// DescribeJSON is Describe rendered as JSON indented by two spaces.
func (r *Registry) DescribeJSON(name string) (string, error) {
	d, err := r.Describe(name)
	if err != nil {
		return "", err
	}
	raw, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

package model

import "strings"

// Tag is a label attached to a node or edge, optionally carrying a value
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// String renders the tag as name or name=value
func (t Tag) String() string {
	if t.Value == "" {
		return t.Name
	}
	return t.Name + "=" + t.Value
}

// Tags is an ordered set of tags keyed by name. Insertion order is preserved
// and setting an existing name replaces its value in place.
type Tags []Tag

// TagSeparator separates tags in their text form
const TagSeparator = ";"

// ParseTags parses the text form of a tag set, e.g. "region=us;vip".
// Empty items are skipped; an item with an empty name is an error.
func ParseTags(s string) (Tags, error) {
	tags := Tags{}
	for _, item := range strings.Split(s, TagSeparator) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, value, _ := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, Errorf(StatusBadRequest, "invalid tag %q: empty name", item)
		}
		tags.Set(name, strings.TrimSpace(value))
	}
	return tags, nil
}

// Get returns the value of the named tag
func (t Tags) Get(name string) (string, bool) {
	for _, tag := range t {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

// Set adds the tag or replaces the value of an existing tag with the same name
func (t *Tags) Set(name, value string) {
	for i := range *t {
		if (*t)[i].Name == name {
			(*t)[i].Value = value
			return
		}
	}
	*t = append(*t, Tag{Name: name, Value: value})
}

// Clone returns an independent copy of the tag set
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// Equal reports whether both sets hold the same tags in the same order.
// A nil set equals an empty one.
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the text form accepted by ParseTags
func (t Tags) String() string {
	parts := make([]string, len(t))
	for i, tag := range t {
		parts[i] = tag.String()
	}
	return strings.Join(parts, TagSeparator)
}

package notes

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
)

// TagSet is the domain representation of a note's tags: a normalized,
// sorted set of non-empty strings. Persistence uses a comma-joined string
// column so the schema stays portable across sqlite and postgres; the
// encoding never leaves this type.
type TagSet []string

// NewTagSet normalizes raw values into a TagSet: tags are trimmed,
// de-duplicated, emptied values dropped, and the result sorted.
func NewTagSet(values []string) TagSet {
	seen := make(map[string]struct{}, len(values))
	tags := make(TagSet, 0, len(values))
	for _, value := range values {
		tag := strings.TrimSpace(value)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Contains reports whether the set holds the tag.
func (t TagSet) Contains(tag string) bool {
	for _, candidate := range t {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Value encodes the set as a comma-joined string for storage.
func (t TagSet) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

// Scan decodes the stored comma-joined string back into a set.
func (t *TagSet) Scan(value interface{}) error {
	if value == nil {
		*t = TagSet{}
		return nil
	}
	var raw string
	switch typed := value.(type) {
	case string:
		raw = typed
	case []byte:
		raw = string(typed)
	default:
		return fmt.Errorf("notes: cannot scan %T into TagSet", value)
	}
	if raw == "" {
		*t = TagSet{}
		return nil
	}
	*t = NewTagSet(strings.Split(raw, ","))
	return nil
}

package dict

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies a DICOM attribute by its (group, element) pair.
type Tag struct {
	Group   uint16
	Element uint16
}

// NewTag creates a Tag from group and element numbers.
func NewTag(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// String formats the tag as "(gggg,eeee)" in upper-case hex.
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// Uint32 packs the tag into a single number (group in the high half).
func (t Tag) Uint32() uint32 {
	return uint32(t.Group)<<16 | uint32(t.Element)
}

// Less orders tags by group, then element.
func (t Tag) Less(other Tag) bool {
	return t.Uint32() < other.Uint32()
}

// ParseTag parses "(gggg,eeee)", "gggg,eeee" or "ggggeeee".
func ParseTag(s string) (Tag, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	raw = strings.ReplaceAll(raw, ",", "")
	if len(raw) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return Tag{Group: uint16(n >> 16), Element: uint16(n)}, nil
}

package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// infinityNames are version components newer than any numeric release, newest first.
var infinityNames = []string{"develop", "main", "master", "head", "trunk", "stable"}

// Version is a parsed package version such as 1.2.3, 1.2rc1 or develop.
type Version struct {
	raw   string
	parts []versionPart
}

type versionPart struct {
	num   int64
	str   string
	isNum bool
}

// rank orders component classes: plain strings < numbers < infinity names.
func (p versionPart) rank() int {
	if p.isNum {
		return 1
	}
	if infinityIndex(p.str) >= 0 {
		return 2
	}
	return 0
}

func infinityIndex(s string) int {
	for i, name := range infinityNames {
		if s == name {
			return i
		}
	}
	return -1
}

func (p versionPart) compare(o versionPart) int {
	if r, or := p.rank(), o.rank(); r != or {
		return r - or
	}
	switch {
	case p.isNum:
		switch {
		case p.num < o.num:
			return -1
		case p.num > o.num:
			return 1
		}
		return 0
	case p.rank() == 2:
		return infinityIndex(o.str) - infinityIndex(p.str)
	default:
		return strings.Compare(p.str, o.str)
	}
}

// ParseVersion parses a version string.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "empty version"), "version", s)
	}
	var parts []versionPart
	start := -1
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		seg := s[start:end]
		start = -1
		if isDigit(seg[0]) {
			n, err := strconv.ParseInt(seg, 10, 64)
			if err != nil {
				return zerr.With(zerr.Wrap(ErrInvalidVersion, err.Error()), "version", s)
			}
			parts = append(parts, versionPart{num: n, isNum: true})
			return nil
		}
		parts = append(parts, versionPart{str: strings.ToLower(seg)})
		return nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.' || c == '-' || c == '_':
			if start < 0 && (i == 0 || i == len(s)-1) {
				return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "malformed version"), "version", s)
			}
			if err := flush(i); err != nil {
				return Version{}, err
			}
		case isDigit(c) || isLetter(c):
			if start >= 0 && isDigit(s[start]) != isDigit(c) {
				if err := flush(i); err != nil {
					return Version{}, err
				}
			}
			if start < 0 {
				start = i
			}
		default:
			return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "malformed version"), "version", s)
		}
	}
	if err := flush(len(s)); err != nil {
		return Version{}, err
	}
	if len(parts) == 0 {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "malformed version"), "version", s)
	}
	return Version{raw: s, parts: parts}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return len(v.parts) == 0
}

// Compare returns -1, 0 or 1 when v is older than, equal to or newer than o.
// A version that is a strict component prefix of another is older.
func (v Version) Compare(o Version) int {
	n := min(len(v.parts), len(o.parts))
	for i := range n {
		if c := v.parts[i].compare(o.parts[i]); c != 0 {
			if c < 0 {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(v.parts) < len(o.parts):
		return -1
	case len(v.parts) > len(o.parts):
		return 1
	}
	return 0
}

// IsDevelop reports whether v leads with a branch name such as develop or main.
func (v Version) IsDevelop() bool {
	return len(v.parts) > 0 && v.parts[0].rank() == 2
}

// Equal reports whether v and o have the same components.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// IsPrefixOf reports whether every component of v equals the leading components of o.
func (v Version) IsPrefixOf(o Version) bool {
	if len(v.parts) > len(o.parts) {
		return false
	}
	for i := range v.parts {
		if v.parts[i].compare(o.parts[i]) != 0 {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// VersionRange is a closed interval of versions. A zero bound is open.
// The upper bound also admits every version it is a component prefix of,
// so 1.2:1.4 contains 1.4.5.
type VersionRange struct {
	Lo    Version
	Hi    Version
	Exact bool
}

// ExactRange returns a range matching only v.
func ExactRange(v Version) VersionRange {
	return VersionRange{Lo: v, Hi: v, Exact: true}
}

// ParseVersionRange parses "1.2", "=1.2", "1.2:", ":1.4" or "1.2:1.4".
func ParseVersionRange(s string) (VersionRange, error) {
	if rest, ok := strings.CutPrefix(s, "="); ok {
		v, err := ParseVersion(rest)
		if err != nil {
			return VersionRange{}, err
		}
		return ExactRange(v), nil
	}
	lo, hi, isRange := strings.Cut(s, ":")
	if !isRange {
		v, err := ParseVersion(s)
		if err != nil {
			return VersionRange{}, err
		}
		return VersionRange{Lo: v, Hi: v}, nil
	}
	if strings.Contains(hi, ":") {
		return VersionRange{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "malformed version"), "version", s)
	}
	var r VersionRange
	var err error
	if lo != "" {
		if r.Lo, err = ParseVersion(lo); err != nil {
			return VersionRange{}, err
		}
	}
	if hi != "" {
		if r.Hi, err = ParseVersion(hi); err != nil {
			return VersionRange{}, err
		}
	}
	if !r.Lo.IsZero() && !r.Hi.IsZero() && r.Hi.Compare(r.Lo) < 0 && !r.Hi.IsPrefixOf(r.Lo) {
		return VersionRange{}, zerr.With(zerr.Wrap(ErrInvalidVersion, "range upper bound is below lower bound"), "version", s)
	}
	return r, nil
}

// Contains reports whether v lies in r.
func (r VersionRange) Contains(v Version) bool {
	if r.Exact {
		return r.Lo.Equal(v)
	}
	if !r.Lo.IsZero() && r.Lo.Compare(v) > 0 {
		return false
	}
	return r.belowHi(v)
}

func (r VersionRange) belowHi(v Version) bool {
	return r.Hi.IsZero() || v.Compare(r.Hi) <= 0 || r.Hi.IsPrefixOf(v)
}

// Subset reports whether every version in r is also in o.
func (r VersionRange) Subset(o VersionRange) bool {
	if r.Exact {
		return o.Contains(r.Lo)
	}
	if o.Exact {
		return false
	}
	if !o.Lo.IsZero() && (r.Lo.IsZero() || o.Lo.Compare(r.Lo) > 0) {
		return false
	}
	if o.Hi.IsZero() {
		return true
	}
	if r.Hi.IsZero() {
		return false
	}
	return o.Hi.IsPrefixOf(r.Hi) || (r.Hi.Compare(o.Hi) < 0 && !r.Hi.IsPrefixOf(o.Hi))
}

// Intersects reports whether some version lies in both r and o.
func (r VersionRange) Intersects(o VersionRange) bool {
	if r.Exact {
		return o.Contains(r.Lo)
	}
	if o.Exact {
		return r.Contains(o.Lo)
	}
	lo := r.Lo
	if lo.IsZero() || (!o.Lo.IsZero() && o.Lo.Compare(lo) > 0) {
		lo = o.Lo
	}
	if lo.IsZero() {
		return true
	}
	return r.belowHi(lo) && o.belowHi(lo)
}

// String returns the canonical form of r.
func (r VersionRange) String() string {
	switch {
	case r.Exact:
		return "=" + r.Lo.String()
	case !r.Lo.IsZero() && !r.Hi.IsZero() && r.Lo.Equal(r.Hi):
		return r.Lo.String()
	default:
		return r.Lo.String() + ":" + r.Hi.String()
	}
}

// VersionList is a union of version ranges. An empty list admits any version.
type VersionList []VersionRange

// ExactVersion returns a list matching only v.
func ExactVersion(v Version) VersionList {
	return VersionList{ExactRange(v)}
}

// ParseVersionList parses a comma separated union such as "1.2,1.4:1.6".
func ParseVersionList(s string) (VersionList, error) {
	if s == "" || s == ":" {
		return nil, nil
	}
	var list VersionList
	for item := range strings.SplitSeq(s, ",") {
		r, err := ParseVersionRange(item)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, nil
}

// IsAny reports whether l places no constraint.
func (l VersionList) IsAny() bool {
	return len(l) == 0
}

// Concrete returns the single exact version of l, if l names exactly one.
func (l VersionList) Concrete() (Version, bool) {
	if len(l) != 1 || !l[0].Exact {
		return Version{}, false
	}
	return l[0].Lo, true
}

// Contains reports whether v lies in any range of l.
func (l VersionList) Contains(v Version) bool {
	if l.IsAny() {
		return true
	}
	for _, r := range l {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// Subset reports whether every range of l lies within some range of o.
func (l VersionList) Subset(o VersionList) bool {
	if o.IsAny() {
		return true
	}
	if l.IsAny() {
		return false
	}
	for _, r := range l {
		if !slices.ContainsFunc(o, r.Subset) {
			return false
		}
	}
	return true
}

// Intersects reports whether l and o share at least one version.
func (l VersionList) Intersects(o VersionList) bool {
	if l.IsAny() || o.IsAny() {
		return true
	}
	for _, r := range l {
		if slices.ContainsFunc(o, r.Intersects) {
			return true
		}
	}
	return false
}

// Select returns the known versions contained in l, preserving order.
func (l VersionList) Select(known []Version) []Version {
	var out []Version
	for _, v := range known {
		if l.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// String returns the canonical comma separated form of l.
func (l VersionList) String() string {
	if l.IsAny() {
		return ":"
	}
	items := make([]string, len(l))
	for i, r := range l {
		items[i] = r.String()
	}
	return strings.Join(items, ",")
}

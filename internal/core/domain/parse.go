package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// ParseSpecs parses one or more whitespace separated spec expressions, e.g.
//
//	hdf5@1.10:+mpi %gcc@9 ^openmpi@4 zlib~shared
//
// A bare package name begins a new spec unless it follows ^, which attaches
// a dependency constraint to the most recent spec.
func ParseSpecs(text string) ([]*Spec, error) {
	p := &specParser{text: text}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.specs, nil
}

// ParseSpec parses exactly one spec expression.
func ParseSpec(text string) (*Spec, error) {
	specs, err := ParseSpecs(text)
	if err != nil {
		return nil, err
	}
	if len(specs) != 1 {
		return nil, zerr.With(zerr.Wrap(ErrInvalidSpec, "expected exactly one spec"), "spec", text)
	}
	return specs[0], nil
}

// ParseCondition parses the when-condition of a package rule. Besides the
// forms ParseSpec accepts, a condition may begin with ^dep, e.g.
//
//	^python@:2
//	@:1.10.0^hdf5@1.10:
//
// which leaves the node itself unconstrained.
func ParseCondition(text string) (*Spec, error) {
	root := &Spec{}
	p := &specParser{text: text, specs: []*Spec{root}, root: root, target: root}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if len(p.specs) != 1 {
		return nil, zerr.With(zerr.Wrap(ErrInvalidSpec, "expected exactly one spec"), "spec", text)
	}
	return root, nil
}

// MustParseSpec is like ParseSpec but panics on error.
func MustParseSpec(text string) *Spec {
	s, err := ParseSpec(text)
	if err != nil {
		panic(err)
	}
	return s
}

type specParser struct {
	text   string
	specs  []*Spec
	root   *Spec
	target *Spec
}

func (p *specParser) parse() error {
	for word := range strings.FieldsSeq(p.text) {
		if err := p.word(word); err != nil {
			return err
		}
	}
	return nil
}

func (p *specParser) fail(msg string) error {
	return zerr.With(zerr.Wrap(ErrInvalidSpec, msg), "spec", p.text)
}

// current returns the spec that attributes apply to, creating an anonymous
// root if none exists yet.
func (p *specParser) current() *Spec {
	if p.target == nil {
		p.root = &Spec{}
		p.target = p.root
		p.specs = append(p.specs, p.root)
	}
	return p.target
}

func (p *specParser) word(w string) error {
	pos := 0
	if w[0] == '-' && len(w) > 1 && isIdentStart(w[1]) {
		name, next := readIdent(w, 1)
		if err := p.setVariant(name, BoolVariant(false)); err != nil {
			return err
		}
		pos = next
	}
	for pos < len(w) {
		c := w[pos]
		switch {
		case c == '^':
			if p.root == nil {
				return p.fail("dependency constraint without a root spec")
			}
			name, next := readIdent(w, pos+1)
			if name == "" {
				return p.fail("expected package name after ^")
			}
			if _, dup := p.root.Edge(name); dup {
				return p.fail("duplicate dependency " + name)
			}
			dep := &Spec{Name: name}
			p.root.Dependencies = append(p.root.Dependencies, DependencyEdge{Spec: dep})
			p.target = dep
			pos = next

		case c == '@':
			end := readVersionEnd(w, pos+1)
			list, err := ParseVersionList(w[pos+1 : end])
			if err != nil || list.IsAny() {
				return p.fail("invalid version " + w[pos+1:end])
			}
			s := p.current()
			if !s.Versions.IsAny() {
				return p.fail("duplicate version constraint")
			}
			s.Versions = list
			pos = end

		case c == '+' || c == '~':
			name, next := readIdent(w, pos+1)
			if name == "" {
				return p.fail("expected variant name after " + string(c))
			}
			if err := p.setVariant(name, BoolVariant(c == '+')); err != nil {
				return err
			}
			pos = next

		case c == '%':
			name, next := readIdent(w, pos+1)
			if name == "" {
				return p.fail("expected compiler name after %")
			}
			comp := CompilerSpec{Name: name}
			if next < len(w) && w[next] == '@' {
				end := readVersionEnd(w, next+1)
				list, err := ParseVersionList(w[next+1 : end])
				if err != nil || list.IsAny() {
					return p.fail("invalid compiler version " + w[next+1:end])
				}
				comp.Versions = list
				next = end
			}
			s := p.current()
			if !s.Compiler.IsZero() {
				return p.fail("duplicate compiler")
			}
			s.Compiler = comp
			pos = next

		case isIdentStart(c):
			name, next := readIdent(w, pos)
			if next < len(w) && w[next] == '=' {
				return p.keyValue(name, w[next+1:])
			}
			p.startSpec(name)
			pos = next

		default:
			return p.fail("unexpected character " + string(c))
		}
	}
	return nil
}

func (p *specParser) startSpec(name string) {
	if p.root != nil && p.target == p.root && p.root.Name == "" {
		p.root.Name = name
		return
	}
	p.root = &Spec{Name: name}
	p.target = p.root
	p.specs = append(p.specs, p.root)
}

func (p *specParser) keyValue(key, value string) error {
	if value == "" {
		return p.fail("missing value for " + key)
	}
	s := p.current()
	switch key {
	case "arch":
		if !s.Arch.IsZero() {
			return p.fail("duplicate arch")
		}
		arch, err := ParseArch(value)
		if err != nil {
			return err
		}
		s.Arch = arch
		return nil
	case "platform", "os", "target":
		field := map[string]*string{"platform": &s.Arch.Platform, "os": &s.Arch.OS, "target": &s.Arch.Target}[key]
		if *field != "" {
			return p.fail("duplicate " + key)
		}
		*field = value
		return nil
	}
	if strings.Contains(value, ",") {
		return p.setVariant(key, MultiVariant(strings.Split(value, ",")...))
	}
	return p.setVariant(key, SingleVariant(value))
}

func (p *specParser) setVariant(name string, v VariantValue) error {
	s := p.current()
	if _, dup := s.Variants[name]; dup {
		return p.fail("duplicate variant " + name)
	}
	if s.Variants == nil {
		s.Variants = make(map[string]VariantValue)
	}
	s.Variants[name] = v
	return nil
}

func isIdentStart(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || c == '.'
}

func readIdent(w string, pos int) (string, int) {
	if pos >= len(w) || !isIdentStart(w[pos]) {
		return "", pos
	}
	end := pos
	for end < len(w) && isIdentChar(w[end]) {
		end++
	}
	return w[pos:end], end
}

func readVersionEnd(w string, pos int) int {
	end := pos
	for end < len(w) {
		c := w[end]
		if !isIdentChar(c) && c != ':' && c != ',' && c != '=' {
			break
		}
		end++
	}
	return end
}

package task

import (
	"strconv"
	"strings"

	core "arrayhpc.io/core"
)

// Built-in placeholders available to every command template
const (
	VarIndex   = "index"
	VarArrayID = "array_id"
	VarRegion  = "region"
)

type part struct {
	literal string
	name    string
}

// Template is a parsed command template. "{name}" is a placeholder for a
// manifest field (by name or 1-based column number) or a built-in;
// "{{" and "}}" are literal braces and "${VAR}" is left to the shell.
type Template struct {
	raw   string
	parts []part
}

func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			// shell parameter expansion, passed through
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, core.Errorf(core.KindTemplate, "unclosed '${' at offset %d in %q", i, s)
			}
			lit.WriteString(s[i : i+end+1])
			i += end
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, core.Errorf(core.KindTemplate, "unclosed '{' at offset %d in %q", i, s)
			}
			name := s[i+1 : i+1+end]
			if !validName(name) {
				return nil, core.Errorf(core.KindTemplate, "invalid placeholder {%s} in %q", name, s)
			}
			if lit.Len() > 0 {
				t.parts = append(t.parts, part{literal: lit.String()})
				lit.Reset()
			}
			t.parts = append(t.parts, part{name: name})
			i += end + 1
		case c == '}':
			return nil, core.Errorf(core.KindTemplate, "unmatched '}' at offset %d in %q", i, s)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{literal: lit.String()})
	}
	return t, nil
}

func validName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

func (t *Template) String() string { return t.raw }

// Names lists the placeholders in order of appearance, without repeats.
func (t *Template) Names() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, p := range t.parts {
		if len(p.name) == 0 {
			continue
		}
		if _, ok := seen[p.name]; !ok {
			seen[p.name] = struct{}{}
			names = append(names, p.name)
		}
	}
	return names
}

// Validate checks every placeholder resolves for units of schema.
func (t *Template) Validate(schema core.Schema) error {
	var missing []string
	for _, name := range t.Names() {
		if schema.Position(name) >= 0 || name == VarIndex || name == VarArrayID {
			continue
		}
		if name == VarRegion && schema.IsBED() {
			continue
		}
		missing = append(missing, "{"+name+"}")
	}
	if len(missing) > 0 {
		return core.Errorf(core.KindTemplate, "unresolved %s; fields are %s",
			strings.Join(missing, ", "), strings.Join(schema, ","))
	}
	return nil
}

// ValidateTemplate parses tmpl and validates it against schema.
func ValidateTemplate(tmpl string, schema core.Schema) error {
	t, err := ParseTemplate(tmpl)
	if err != nil {
		return err
	}
	return t.Validate(schema)
}

// Expand substitutes unit fields and built-ins. Values are shell quoted
// unless raw is set.
func (t *Template) Expand(unit core.WorkUnit, index int, arrayID string, raw bool) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if len(p.name) == 0 {
			b.WriteString(p.literal)
			continue
		}
		v, ok := lookup(unit, index, arrayID, p.name)
		if !ok {
			return "", core.Errorf(core.KindTemplate, "unresolved placeholder {%s}; fields are %s",
				p.name, strings.Join(unit.Fields(), ",")).WithIndex(index)
		}
		if !raw {
			v = core.ShellQuote(v)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Fields shadow built-ins of the same name.
func lookup(unit core.WorkUnit, index int, arrayID, name string) (string, bool) {
	if v, ok := unit.Get(name); ok {
		return v, true
	}
	switch name {
	case VarIndex:
		return strconv.Itoa(index), true
	case VarArrayID:
		return arrayID, true
	case VarRegion:
		if iv, ok := unit.Interval(); ok {
			return iv.Region(), true
		}
	}
	return "", false
}

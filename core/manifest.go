package core

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"strings"
)

// BED column names. A manifest using this schema yields Intervals.
const (
	FieldChrom = "chrom"
	FieldStart = "start"
	FieldStop  = "stop"
)

var bedSchema = Schema{FieldChrom, FieldStart, FieldStop}

const maxLineSize = 1024 * 1024

// Schema holds the ordered field names shared by all units of a Manifest.
type Schema []string

// PositionalSchema names n columns "1".."n".
func PositionalSchema(n int) Schema {
	s := make(Schema, n)
	for i := range s {
		s[i] = strconv.Itoa(i + 1)
	}
	return s
}

// Position returns the 0-based column for name. Besides the schema names,
// the 1-based column number ("1", "2", ...) is always accepted.
func (s Schema) Position(name string) int {
	for i, field := range s {
		if field == name {
			return i
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(s) {
		return n - 1
	}
	return -1
}

// IsBED reports whether s is the chrom, start, stop interval layout.
func (s Schema) IsBED() bool {
	if len(s) != len(bedSchema) {
		return false
	}
	for i := range s {
		if s[i] != bedSchema[i] {
			return false
		}
	}
	return true
}

func (s Schema) validate() *Error {
	seen := make(map[string]struct{}, len(s))
	for _, name := range s {
		if len(name) == 0 {
			return newError(KindConfig, "empty field name")
		}
		if strings.ContainsAny(name, "{} \t") {
			return newError(KindConfig, "field name %q contains braces or spaces", name)
		}
		if _, err := strconv.Atoi(name); err == nil {
			continue
		}
		if _, ok := seen[name]; ok {
			return newError(KindConfig, "duplicate field name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// WorkUnit is one line of a manifest: an immutable tuple of named fields.
type WorkUnit struct {
	schema   Schema
	values   []string
	position int
	line     int
}

func (u WorkUnit) Len() int { return len(u.values) }

// Position is the 0-based position of the unit inside its manifest.
func (u WorkUnit) Position() int { return u.position }

// Line is the 1-based source line the unit was read from (0 if generated).
func (u WorkUnit) Line() int { return u.line }

func (u WorkUnit) Fields() []string {
	return append([]string(nil), u.schema...)
}

func (u WorkUnit) Values() []string {
	return append([]string(nil), u.values...)
}

func (u WorkUnit) Get(name string) (string, bool) {
	if i := u.schema.Position(name); i >= 0 {
		return u.values[i], true
	}
	return "", false
}

func (u WorkUnit) Map() map[string]string {
	m := make(map[string]string, len(u.values))
	for i, v := range u.values {
		m[u.schema[i]] = v
	}
	return m
}

// Interval reports the unit as an Interval when it has the BED schema.
func (u WorkUnit) Interval() (Interval, bool) {
	if !u.schema.IsBED() {
		return Interval{}, false
	}
	iv, err := parseInterval(u.values)
	if err != nil {
		return Interval{}, false
	}
	return iv, true
}

// Manifest is the ordered, read-only list of work units for one array
// submission.
type Manifest struct {
	path   string
	schema Schema
	units  []WorkUnit
	digest string
}

func (m *Manifest) Len() int       { return len(m.units) }
func (m *Manifest) Path() string   { return m.path }
func (m *Manifest) Schema() Schema { return append(Schema(nil), m.schema...) }

// Digest is the hex SHA-256 of the manifest's source bytes. Generated
// manifests hash their BED rendering.
func (m *Manifest) Digest() string { return m.digest }

// At returns the unit at 0-based position i.
func (m *Manifest) At(i int) (WorkUnit, bool) {
	if i < 0 || i >= len(m.units) {
		return WorkUnit{}, false
	}
	return m.units[i], true
}

// Line returns the unit at 1-based position n, the numbering used by
// 1-based scheduler array ranges.
func (m *Manifest) Line(n int) (WorkUnit, bool) {
	return m.At(n - 1)
}

func (m *Manifest) Units() []WorkUnit {
	return append([]WorkUnit(nil), m.units...)
}

// LoadOptions describe the expected shape of a manifest file.
type LoadOptions struct {
	// Fields names the columns. Optional.
	Fields []string
	// Columns is the expected column count. When zero it is len(Fields),
	// or the column count of the first data line.
	Columns int
	// Tab splits on single tabs instead of runs of whitespace, keeping
	// empty columns and values containing spaces.
	Tab bool
	// BED requires the three-column interval layout chrom, start, stop.
	BED bool
}

func (o LoadOptions) schema() (Schema, int, *Error) {
	fields := o.Fields
	if o.BED {
		if len(fields) > 0 && !Schema(fields).IsBED() {
			return nil, 0, newError(KindConfig, "BED manifests use the fields chrom,start,stop")
		}
		fields = bedSchema
	}
	columns := o.Columns
	if len(fields) > 0 {
		if columns > 0 && columns != len(fields) {
			return nil, 0, newError(KindConfig, "%d field names for %d columns", len(fields), columns)
		}
		columns = len(fields)
	}
	if columns < 0 {
		return nil, 0, newError(KindConfig, "negative column count %d", columns)
	}
	schema := Schema(fields)
	if err := schema.validate(); err != nil {
		return nil, 0, err
	}
	return schema, columns, nil
}

// LoadManifest reads a delimited manifest file. Blank lines and lines
// starting with '#' are skipped and do not consume an index.
func LoadManifest(path string, opts LoadOptions) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(path, err, "open manifest")
	}
	defer f.Close()
	return ParseManifest(f, path, opts)
}

// ParseManifest is LoadManifest on a reader; name is used in errors.
func ParseManifest(r io.Reader, name string, opts LoadOptions) (*Manifest, error) {
	schema, columns, err := opts.schema()
	if err != nil {
		return nil, err.WithPath(name)
	}
	hash := sha256.New()
	scanner := bufio.NewScanner(io.TeeReader(r, hash))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	m := &Manifest{path: name}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(line); len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}
		values := splitLine(line, opts.Tab)
		if columns == 0 {
			columns = len(values)
		}
		if len(values) != columns {
			return nil, newError(KindFormat, "expected %d columns, found %d", columns, len(values)).
				WithPath(name).WithLine(lineNo)
		}
		if len(schema) == 0 {
			schema = PositionalSchema(columns)
		}
		if opts.BED {
			if _, err := parseInterval(values); err != nil {
				return nil, err.WithPath(name).WithLine(lineNo)
			}
		}
		m.units = append(m.units, WorkUnit{
			schema:   schema,
			values:   values,
			position: len(m.units),
			line:     lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, ioError(name, err, "read manifest")
	}
	if len(m.units) == 0 {
		return nil, newError(KindEmptyManifest, "no data lines").WithPath(name)
	}
	m.schema = schema
	m.digest = hex.EncodeToString(hash.Sum(nil))
	return m, nil
}

func splitLine(line string, tab bool) []string {
	if tab {
		return strings.Split(line, "\t")
	}
	return strings.Fields(line)
}

// newManifest builds a manifest from already validated rows.
func newManifest(name string, schema Schema, rows [][]string, digest string) *Manifest {
	m := &Manifest{path: name, schema: schema, digest: digest}
	m.units = make([]WorkUnit, len(rows))
	for i, row := range rows {
		m.units[i] = WorkUnit{schema: schema, values: row, position: i}
	}
	return m
}

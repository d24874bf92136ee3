package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies every failure the tool reports. The CLI prints the kind
// name on stderr so wrappers can parse it.
type Kind int

const (
	KindIO Kind = iota + 1
	KindFormat
	KindEmptyManifest
	KindIndexOutOfRange
	KindInvalidWindowSize
	KindInvalidLength
	KindInvalidConcurrency
	KindEmptyPlan
	KindTemplate
	KindCommand
	KindConfig
	KindManifestChanged
)

var kindNames = map[Kind]string{
	KindIO:                 "IOError",
	KindFormat:             "FormatError",
	KindEmptyManifest:      "EmptyManifestError",
	KindIndexOutOfRange:    "IndexOutOfRangeError",
	KindInvalidWindowSize:  "InvalidWindowSizeError",
	KindInvalidLength:      "InvalidLengthError",
	KindInvalidConcurrency: "InvalidConcurrencyError",
	KindEmptyPlan:          "EmptyPlanError",
	KindTemplate:           "TemplateError",
	KindCommand:            "CommandError",
	KindConfig:             "ConfigError",
	KindManifestChanged:    "ManifestChangedError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownError"
}

// Sentinels for errors.Is matching; only the Kind is compared.
var (
	ErrIO                 = &Error{Kind: KindIO}
	ErrFormat             = &Error{Kind: KindFormat}
	ErrEmptyManifest      = &Error{Kind: KindEmptyManifest}
	ErrIndexOutOfRange    = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidWindowSize  = &Error{Kind: KindInvalidWindowSize}
	ErrInvalidLength      = &Error{Kind: KindInvalidLength}
	ErrInvalidConcurrency = &Error{Kind: KindInvalidConcurrency}
	ErrEmptyPlan          = &Error{Kind: KindEmptyPlan}
	ErrTemplate           = &Error{Kind: KindTemplate}
	ErrCommand            = &Error{Kind: KindCommand}
	ErrConfig             = &Error{Kind: KindConfig}
	ErrManifestChanged    = &Error{Kind: KindManifestChanged}
)

// Error carries a Kind plus whatever context is needed to reproduce the
// failure: manifest path, 1-based line number and task index.
type Error struct {
	Kind  Kind
	Path  string
	Line  int
	Index int
	Msg   string
	Err   error

	hasIndex bool
}

func newError(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Errorf builds an Error of the given kind. Packages outside core use it so
// every failure shares one taxonomy.
func Errorf(kind Kind, format string, a ...interface{}) *Error {
	return newError(kind, format, a...)
}

func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) WithLine(line int) *Error {
	e.Line = line
	return e
}

func (e *Error) WithIndex(index int) *Error {
	e.Index = index
	e.hasIndex = true
	return e
}

func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// HasIndex reports whether Index was set.
func (e *Error) HasIndex() bool {
	return e.hasIndex
}

func (e *Error) Error() string {
	detail := e.Detail()
	switch {
	case len(detail) == 0:
		return e.Kind.String()
	case len(e.Path) > 0 || e.hasIndex:
		return e.Kind.String() + " " + detail
	}
	return e.Kind.String() + ": " + detail
}

// Detail is the error text without the kind: where it happened, then what.
func (e *Error) Detail() string {
	var b strings.Builder
	sep := func(s string) {
		if b.Len() > 0 {
			b.WriteString(s)
		}
	}
	if len(e.Path) > 0 {
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.hasIndex {
		sep(" ")
		fmt.Fprintf(&b, "index %d", e.Index)
	}
	if len(e.Msg) > 0 {
		sep(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		sep(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func ioError(path string, err error, action string) *Error {
	return newError(KindIO, "").WithPath(path).Wrap(errors.Wrap(err, action))
}

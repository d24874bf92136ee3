package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
)

// command is a subcommand, registered from the init of its file.
type command struct {
	name, short, long string
	data              func() interface{}
}

var commands []command

func addCommand(name, short, long string, data func() interface{}) {
	commands = append(commands, command{name: name, short: short, long: long, data: data})
}

// newParser builds the parser over fresh command values, so every parse
// starts from the option defaults.
func newParser() *flags.Parser {
	parser := flags.NewNamedParser("array-hpc", flags.PassDoubleDash)
	for _, c := range commands {
		parser.AddCommand(c.name, c.short, c.long, c.data())
	}
	return parser
}

// swapped by tests
var (
	stdout    io.Writer = os.Stdout
	stdin     io.Reader = os.Stdin
	lookupEnv           = os.LookupEnv
)

func printHelp(w io.Writer, parser *flags.Parser) {
	// Print help for active command
	if parser.Command.Active != nil {
		root := parser.Command
		parser.Command = parser.Command.Active
		defer func() { parser.Command = root }()
	}
	var b bytes.Buffer
	parser.WriteHelp(&b)
	fmt.Fprintln(w, b.String())
}

// exitError ends the process with code and no message. The command has
// already reported what happened.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// handleError reports err on w and returns the process exit code.
func handleError(w io.Writer, parser *flags.Parser, err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	switch flagsErr := err.(type) {
	case *flags.Error:
		if flagsErr.Type == flags.ErrHelp ||
			flagsErr.Type == flags.ErrCommandRequired {
			printHelp(w, parser)
			return 0
		}
		fmt.Fprintln(w, flagsErr.Error())
		if flagsErr.Type == flags.ErrRequired || flagsErr.Type == flags.ErrMarshal {
			printHelp(w, parser)
		}
		return 1
	default:
		logger.ErrorPrintf("%+v", err)
		fmt.Fprintf(w, "error kind=%s msg=%q\n", core.KindOf(err), errorMessage(err))
		return 1
	}
}

// errorMessage is err's text with the kind left out, since the report
// already names it.
func errorMessage(err error) string {
	var e *core.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	return strings.Replace(err.Error(), e.Error(), e.Detail(), 1)
}

func main() {
	parser := newParser()
	if _, err := parser.Parse(); err != nil {
		os.Exit(handleError(os.Stderr, parser, err))
	}
}

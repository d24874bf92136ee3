package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	core "arrayhpc.io/core"
	task "arrayhpc.io/task"
)

type ValidateCommand struct {
	Help     bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest ManifestFlags `group:"Manifest Options"`
	Template string        `short:"T" long:"template" description:"command template to check against the manifest"`
	Base     string        `short:"b" long:"base" description:"index base used to number the preview" default:"1"`
	Show     int           `long:"show" description:"number of tasks to preview" default:"5"`
	Raw      bool          `long:"raw" description:"preview without shell quoting"`
}

// Execute checks the manifest and template before anything is submitted
// and previews the first tasks' commands.
func (x *ValidateCommand) Execute(args []string) error {
	if x.Help {
		return createHelpErr()
	}
	base, err := core.ParseIndexBase(x.Base)
	if err != nil {
		return err
	}
	m, err := x.Manifest.load()
	if err != nil {
		return err
	}
	var tmpl *task.Template
	if len(x.Template) > 0 {
		if tmpl, err = task.ParseTemplate(x.Template); err != nil {
			return err
		}
		if err := tmpl.Validate(m.Schema()); err != nil {
			return err
		}
	}

	headers := []string{"INDEX"}
	headers = append(headers, m.Schema()...)
	if tmpl != nil {
		headers = append(headers, "COMMAND")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, unit := range m.Units() {
		if i >= x.Show {
			break
		}
		index := core.IndexOf(unit, base)
		row := append([]string{strconv.Itoa(index)}, unit.Values()...)
		if tmpl != nil {
			command, err := tmpl.Expand(unit, index, "<array_id>", x.Raw)
			if err != nil {
				return err
			}
			row = append(row, command)
		}
		t.Row(row...)
	}
	if x.Show > 0 {
		fmt.Fprintln(stdout, t.String())
	}
	fmt.Fprintf(stdout, "%s: %d tasks, fields %v, digest %s\n", m.Path(), m.Len(), []string(m.Schema()), m.Digest())
	return nil
}

func init() {
	addCommand("validate",
		"Check a manifest and command template",
		"The validate command loads the manifest, checks that every template "+
			"placeholder resolves and previews the first task commands.",
		func() interface{} { return &ValidateCommand{} })
}

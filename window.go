package main

import (
	"os"

	"github.com/pkg/errors"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
)

type WindowCommand struct {
	Help    bool   `short:"h" long:"help" description:"Show this help message"`
	Lengths string `short:"l" long:"lengths" description:"sequence length table (name length), e.g. a .fai index" required:"true"`
	Size    int64  `short:"w" long:"size" description:"window size in bases" required:"true"`
	Out     string `short:"o" long:"out" description:"output BED file" default:"-"`
}

func (x *WindowCommand) Execute(args []string) error {
	if x.Help {
		return createHelpErr()
	}
	var lengths []core.SequenceLength
	var err error
	if x.Lengths == "-" {
		lengths, err = core.ParseLengths(stdin, stdinName)
	} else {
		lengths, err = core.LoadLengths(x.Lengths)
	}
	if err != nil {
		return err
	}
	m, err := core.GenerateWindows(lengths, x.Size)
	if err != nil {
		return err
	}
	logger.InfoPrintf("%d windows of %d over %d sequences", m.Len(), x.Size, len(lengths))

	if x.Out == "-" {
		return core.WriteBED(stdout, m)
	}
	f, err := os.Create(x.Out)
	if err != nil {
		return core.Errorf(core.KindIO, "").WithPath(x.Out).Wrap(errors.Wrap(err, "create"))
	}
	if err := core.WriteBED(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return core.Errorf(core.KindIO, "").WithPath(x.Out).Wrap(errors.Wrap(err, "close"))
	}
	return nil
}

func init() {
	addCommand("window",
		"Split sequences into fixed size windows",
		"The window command writes a BED manifest of [k*size, (k+1)*size) windows "+
			"for every sequence of a length table. The last window of a sequence may be short.",
		func() interface{} { return &WindowCommand{} })
}

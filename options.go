package main

import (
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"

	core "arrayhpc.io/core"
)

const stdinName = "STDIN"

// ManifestFlags select and describe the manifest file.
type ManifestFlags struct {
	Manifest string `short:"m" long:"manifest" description:"manifest file, '-' for stdin"`
	Fields   string `short:"f" long:"fields" description:"comma separated field names"`
	Columns  int    `short:"n" long:"columns" description:"expected column count (inferred from the first line when unset)"`
	Tab      bool   `long:"tab" description:"split on single tabs, keeping empty columns and spaces"`
	BED      bool   `long:"bed" description:"manifest is a 3 column BED interval file"`
}

func (f *ManifestFlags) options() core.LoadOptions {
	opts := core.LoadOptions{Columns: f.Columns, Tab: f.Tab, BED: f.BED}
	if len(f.Fields) > 0 {
		opts.Fields = strings.Split(f.Fields, ",")
	}
	return opts
}

func (f *ManifestFlags) load() (*core.Manifest, error) {
	if len(f.Manifest) == 0 {
		return nil, core.Errorf(core.KindConfig, "--manifest is required")
	}
	if f.Manifest == "-" {
		return core.ParseManifest(stdin, stdinName, f.options())
	}
	return core.LoadManifest(f.Manifest, f.options())
}

// args renders the flags for the run line of a batch script.
func (f *ManifestFlags) args(path string) []string {
	args := []string{"--manifest", path}
	if len(f.Fields) > 0 {
		args = append(args, "--fields", f.Fields)
	}
	if f.Columns > 0 {
		args = append(args, "--columns", strconv.Itoa(f.Columns))
	}
	if f.Tab {
		args = append(args, "--tab")
	}
	if f.BED {
		args = append(args, "--bed")
	}
	return args
}

// ProfileFlags pick the config file profile supplying defaults.
type ProfileFlags struct {
	Profile string `short:"P" long:"profile" description:"config profile" default:"default"`
	Base    string `short:"b" long:"base" description:"index of the first manifest entry, 0 or 1"`
}

func (f *ProfileFlags) load() (core.Profile, error) {
	config, err := core.ReadConfig()
	if err != nil {
		return core.Profile{}, err
	}
	return config.Profile(f.Profile), nil
}

// indexBase is --base, else the profile's index_base. There is no default.
func (f *ProfileFlags) indexBase(profile core.Profile) (core.IndexBase, error) {
	if len(f.Base) > 0 {
		return core.ParseIndexBase(f.Base)
	}
	if profile.IndexBase != nil {
		return core.ParseIndexBase(strconv.Itoa(*profile.IndexBase))
	}
	return 0, core.Errorf(core.KindConfig,
		"index base is required: pass --base 0 or --base 1, or set index_base in profile %q", f.Profile)
}

func createHelpErr() error {
	err := flags.Error{
		Type:    flags.ErrHelp,
		Message: "show help message",
	}
	return &err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

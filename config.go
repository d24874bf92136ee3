package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	core "arrayhpc.io/core"
)

type ConfigCommand struct {
	Help    bool     `short:"h" long:"help" description:"Show this help message"`
	Profile string   `short:"P" long:"profile" description:"profile to show or edit" default:"default"`
	List    bool     `short:"l" long:"list" description:"list configured profiles"`
	Set     []string `long:"set" description:"set a profile key, key=value (repeatable)"`
	Path    bool     `long:"path" description:"print the config file path"`
}

func (x *ConfigCommand) Execute(args []string) error {
	if x.Help {
		return createHelpErr()
	}
	if x.Path {
		fmt.Fprintln(stdout, core.ConfigPath())
		return nil
	}
	config, err := core.ReadConfig()
	if err != nil {
		return err
	}
	if x.List {
		for _, name := range config.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}
	if len(x.Set) > 0 {
		profile := config[x.Profile]
		for _, kv := range x.Set {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return core.Errorf(core.KindConfig, "--set takes key=value, got %q", kv)
			}
			if err := profile.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
				return err
			}
		}
		config[x.Profile] = profile
		return core.WriteConfig(config)
	}
	if _, ok := config[x.Profile]; !ok {
		return core.Errorf(core.KindConfig, "profile %q does not exist", x.Profile).WithPath(core.ConfigPath())
	}
	out, err := yaml.Marshal(config[x.Profile])
	if err != nil {
		return core.Errorf(core.KindConfig, "").Wrap(err)
	}
	fmt.Fprint(stdout, string(out))
	return nil
}

func init() {
	addCommand("config",
		"Show or edit scheduler profiles",
		"The config command manages named profiles of scheduler defaults in "+
			"~/.config/array-hpc/config.yaml (or $ARRAY_HPC_CONFIG).",
		func() interface{} { return &ConfigCommand{} })
}

package core

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ArrayHpcConfigPath      = ".config/array-hpc"
	ArrayHpcConfigFilename  = "config.yaml"
	ArrayHpcConfigFilePerms = 0600
	ArrayHpcConfigEnv       = "ARRAY_HPC_CONFIG"
	DefaultProfile          = "default"
)

// Layout for the config file
/*
default:
  scheduler: slurm
  partition: short
  account: lab
  time: "01:00:00"
  memory: 8G
  cpus_per_task: 4
  concurrency: 20
  index_base: 1
  out_dir: logs
*/
type Profile struct {
	Scheduler   string `yaml:"scheduler,omitempty"`
	Partition   string `yaml:"partition,omitempty"`
	Account     string `yaml:"account,omitempty"`
	Time        string `yaml:"time,omitempty"`
	Memory      string `yaml:"memory,omitempty"`
	CpusPerTask int    `yaml:"cpus_per_task,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
	IndexBase   *int   `yaml:"index_base,omitempty"`
	OutDir      string `yaml:"out_dir,omitempty"`
	Shell       string `yaml:"shell,omitempty"`
}

type Config map[string]Profile

// ConfigPath is $ARRAY_HPC_CONFIG, else ~/.config/array-hpc/config.yaml,
// else config.yaml in the current directory when HOME is unset.
func ConfigPath() string {
	if env := os.Getenv(ArrayHpcConfigEnv); len(env) > 0 {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ArrayHpcConfigFilename
	}
	return filepath.Join(home, ArrayHpcConfigPath, ArrayHpcConfigFilename)
}

// ReadConfig loads the config file. A missing file is an empty Config.
func ReadConfig() (Config, error) {
	filename := ConfigPath()
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return Config{}, nil
	} else if err != nil {
		return nil, newError(KindConfig, "").WithPath(filename).Wrap(errors.Wrap(err, "read config"))
	}
	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, newError(KindConfig, "").WithPath(filename).Wrap(errors.Wrap(err, "decode config"))
	}
	if config == nil {
		// a null document decodes to a nil map
		config = Config{}
	}
	return config, nil
}

func WriteConfig(config Config) error {
	filename := ConfigPath()
	data, err := yaml.Marshal(config)
	if err != nil {
		return newError(KindConfig, "").WithPath(filename).Wrap(errors.Wrap(err, "encode config"))
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return newError(KindConfig, "").WithPath(filename).Wrap(errors.Wrap(err, "create config dir"))
	}
	if err := os.WriteFile(filename, data, ArrayHpcConfigFilePerms); err != nil {
		return newError(KindConfig, "").WithPath(filename).Wrap(errors.Wrap(err, "write config"))
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(filename, ArrayHpcConfigFilePerms)
}

// Profile returns the named profile, or the zero Profile.
func (c Config) Profile(name string) Profile {
	if len(name) == 0 {
		name = DefaultProfile
	}
	return c[name]
}

func (c Config) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set assigns one profile key from its config file name.
func (p *Profile) Set(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, newError(KindConfig, "%s must be a non-negative integer, got %q", key, value)
		}
		return n, nil
	}
	var err error
	switch key {
	case "scheduler":
		value = strings.ToLower(value)
		if value != "slurm" && value != "sge" {
			return newError(KindConfig, "scheduler must be slurm or sge, got %q", value)
		}
		p.Scheduler = value
	case "partition":
		p.Partition = value
	case "account":
		p.Account = value
	case "time":
		p.Time = value
	case "memory":
		p.Memory = value
	case "cpus_per_task":
		p.CpusPerTask, err = atoi()
	case "concurrency":
		p.Concurrency, err = atoi()
	case "index_base":
		var base IndexBase
		if base, err = ParseIndexBase(value); err == nil {
			b := int(base)
			p.IndexBase = &b
		}
	case "out_dir":
		p.OutDir = value
	case "shell":
		p.Shell = value
	default:
		return newError(KindConfig, "unknown profile key %q", key)
	}
	return err
}

package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv(ArrayHpcConfigEnv, path)

	config, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig on missing file: %v", err)
	}
	if len(config) != 0 {
		t.Fatalf("missing file should give empty config, got %v", config)
	}

	p := config.Profile("")
	for key, value := range map[string]string{
		"scheduler":   "SLURM",
		"partition":   "short",
		"concurrency": "20",
		"index_base":  "1",
		"memory":      "8G",
	} {
		if err := p.Set(key, value); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	config[DefaultProfile] = p
	if err := WriteConfig(config); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != ArrayHpcConfigFilePerms {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	got := loaded.Profile(DefaultProfile)
	if got.Scheduler != "slurm" || got.Partition != "short" || got.Concurrency != 20 || got.Memory != "8G" {
		t.Errorf("profile = %+v", got)
	}
	if got.IndexBase == nil || *got.IndexBase != 1 {
		t.Errorf("index_base = %v", got.IndexBase)
	}
	if names := loaded.Names(); len(names) != 1 || names[0] != DefaultProfile {
		t.Errorf("Names() = %v", names)
	}
}

func TestProfileSetErrors(t *testing.T) {
	var p Profile
	for _, kv := range [][2]string{
		{"scheduler", "pbs"},
		{"concurrency", "-1"},
		{"index_base", "2"},
		{"colour", "blue"},
	} {
		if err := p.Set(kv[0], kv[1]); !errors.Is(err, ErrConfig) {
			t.Errorf("Set(%s=%s) err = %v", kv[0], kv[1], err)
		}
	}
}

func TestReadConfigInvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "default: [not, a, profile\n")
	t.Setenv(ArrayHpcConfigEnv, path)
	if _, err := ReadConfig(); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestReadConfigNullDocument(t *testing.T) {
	for _, content := range []string{"~\n", "null\n", "", "# nothing yet\n"} {
		path := writeFile(t, "config.yaml", content)
		t.Setenv(ArrayHpcConfigEnv, path)
		config, err := ReadConfig()
		if err != nil {
			t.Fatalf("%q: ReadConfig: %v", content, err)
		}
		if config == nil {
			t.Fatalf("%q: ReadConfig returned a nil map", content)
		}
		config["short"] = config.Profile("short")
		if err := WriteConfig(config); err != nil {
			t.Fatalf("%q: WriteConfig: %v", content, err)
		}
	}
}

func TestReadEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		id      string
		index   int
		hasIdx  bool
		wantErr bool
	}{
		{"slurm", map[string]string{SlurmArrayJobEnv: "4242", SlurmArrayTaskEnv: "17"}, "4242", 17, true, false},
		{"override", map[string]string{ArrayIDEnv: "run-a", SlurmArrayJobEnv: "4242"}, "run-a", 0, false, false},
		{"sge", map[string]string{SgeJobEnv: "88", SgeTaskEnv: "3"}, "88", 3, true, false},
		{"sge not array", map[string]string{SgeJobEnv: "88", SgeTaskEnv: "undefined"}, "88", 0, false, false},
		{"plain sge job id ignored", map[string]string{SgeJobEnv: "88"}, "", 0, false, true},
		{"missing", map[string]string{}, "", 0, false, true},
		{"path separator", map[string]string{ArrayIDEnv: "../etc"}, "", 0, false, true},
		{"bad index", map[string]string{ArrayIDEnv: "x", TaskIndexEnv: "seven"}, "", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ReadEnvFunc(func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			if tt.wantErr {
				if !errors.Is(err, ErrConfig) {
					t.Fatalf("err = %v, want ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadEnvFunc: %v", err)
			}
			if env.ArrayID != tt.id || env.TaskIndex != tt.index || env.HasIndex != tt.hasIdx {
				t.Errorf("env = %+v", env)
			}
		})
	}
}

func TestParseJobScript(t *testing.T) {
	script := `#!/bin/bash
#SBATCH --job-name=align   # Job name
#SBATCH --array=1-791%20

#SBATCH -o logs/%A_%a.out
module load bwa
#SBATCH --ignored=after-commands
bwa mem ref.fa r1.fq r2.fq
`
	js, err := ParseJobScript("SBATCH", strings.NewReader(script), "job.sh")
	if err != nil {
		t.Fatalf("ParseJobScript: %v", err)
	}
	if js.Shell != "/bin/bash" {
		t.Errorf("Shell = %q", js.Shell)
	}
	want := []string{"--job-name=align", "--array=1-791%20", "-o", "logs/%A_%a.out"}
	if strings.Join(js.Args, " ") != strings.Join(want, " ") {
		t.Errorf("Args = %q, want %q", js.Args, want)
	}
	if !strings.Contains(string(js.Script), "#SBATCH --ignored=after-commands") {
		t.Errorf("directive after first command should stay in body:\n%s", js.Script)
	}
}

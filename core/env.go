package core

import (
	"os"
	"strconv"
	"strings"
)

// Scheduler environment variables
const (
	ArrayIDEnv        = "ARRAY_HPC_ARRAY_ID"
	TaskIndexEnv      = "ARRAY_HPC_INDEX"
	SlurmArrayJobEnv  = "SLURM_ARRAY_JOB_ID"
	SlurmArrayTaskEnv = "SLURM_ARRAY_TASK_ID"
	SgeJobEnv         = "JOB_ID"
	SgeTaskEnv        = "SGE_TASK_ID"
)

// Env is the array submission identity the scheduler hands to each task.
type Env struct {
	ArrayID   string
	TaskIndex int
	HasIndex  bool
	// Source names the variable ArrayID came from
	Source string
}

// ReadEnv reads the process environment.
func ReadEnv() (Env, error) {
	return ReadEnvFunc(os.LookupEnv)
}

// ReadEnvFunc resolves the array id and task index through lookup.
// The array id is required: defaulting it would let unrelated submissions
// write the same output files.
func ReadEnvFunc(lookup func(string) (string, bool)) (Env, error) {
	var env Env
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	_, sgeTask := lookup(SgeTaskEnv)
	switch {
	case len(get(ArrayIDEnv)) > 0:
		env.ArrayID, env.Source = get(ArrayIDEnv), ArrayIDEnv
	case len(get(SlurmArrayJobEnv)) > 0:
		env.ArrayID, env.Source = get(SlurmArrayJobEnv), SlurmArrayJobEnv
	case sgeTask && len(get(SgeJobEnv)) > 0:
		env.ArrayID, env.Source = get(SgeJobEnv), SgeJobEnv
	default:
		return Env{}, newError(KindConfig, "no array id: set %s or run under a SLURM or SGE array job",
			ArrayIDEnv)
	}
	if err := ValidateArrayID(env.ArrayID); err != nil {
		return Env{}, err
	}
	index, ok, err := TaskIndexFunc(lookup)
	if err != nil {
		return Env{}, err
	}
	env.TaskIndex, env.HasIndex = index, ok
	return env, nil
}

// ValidateArrayID rejects ids that could escape or alias an output path.
func ValidateArrayID(id string) error {
	if len(id) == 0 {
		return newError(KindConfig, "empty array id")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`+"\x00") {
		return newError(KindConfig, "array id %q contains a path separator", id)
	}
	return nil
}

// TaskIndexFunc reads the running task's index from the first of
// ARRAY_HPC_INDEX, SLURM_ARRAY_TASK_ID and SGE_TASK_ID that is set.
func TaskIndexFunc(lookup func(string) (string, bool)) (int, bool, error) {
	for _, key := range []string{TaskIndexEnv, SlurmArrayTaskEnv, SgeTaskEnv} {
		v, _ := lookup(key)
		v = strings.TrimSpace(v)
		if len(v) == 0 {
			continue
		}
		index, err := strconv.Atoi(v)
		if err != nil {
			// SGE sets "undefined" outside array jobs
			if key == SgeTaskEnv && v == "undefined" {
				continue
			}
			return 0, false, newError(KindConfig, "%s=%q is not an integer", key, v)
		}
		return index, true, nil
	}
	return 0, false, nil
}

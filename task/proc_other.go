//go:build !unix

package task

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

func exitCode(err *exec.ExitError) int { return err.ExitCode() }

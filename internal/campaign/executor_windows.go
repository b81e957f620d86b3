//go:build windows

package campaign

import "os/exec"

const (
	shellPath = "cmd"
	shellFlag = "/C"
)

func setProcessGroup(_ *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	_ = cmd.Process.Kill()
}

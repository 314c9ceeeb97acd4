package enclave

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Run is the outcome of a command executed inside an enclave.
type Run struct {
	Time     string   `json:"time"`
	Exit     int      `json:"exit"`
	Stdout   []string `json:"stdout"`
	Stderr   []string `json:"stderr"`
	TimedOut bool     `json:"timedOut"`
}

// Exec runs command with args in the enclave directory and collects its output.
// A non-zero exit is reported in Run.Exit, not as an error.
func (e *Enclave) Exec(ctx context.Context, timeout time.Duration, command string, args ...string) (Run, error) {
	var run Run

	// The context kills the fork once the timeout has elapsed.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = e.Cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	run.Stdout = lines(stdout.String())
	run.Stderr = lines(stderr.String())

	if cmd.ProcessState != nil {
		run.Time = (cmd.ProcessState.UserTime() + cmd.ProcessState.SystemTime()).String()
		run.Exit = cmd.ProcessState.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.TimedOut = true
		return run, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return run, err
	}
	return run, nil
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

package power

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Absolute paths of the only commands this package is allowed to execute.
const (
	pmsetPath = "/usr/bin/pmset"
	lastPath  = "/usr/bin/last"
	logPath   = "/usr/bin/log"
	ioregPath = "/usr/sbin/ioreg"
)

var allowedCommands = map[string]struct{}{
	pmsetPath: {},
	lastPath:  {},
	logPath:   {},
	ioregPath: {},
}

// CommandRunner executes a system command and returns its stdout. Sources
// depend on this interface so tests can script command output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs allowlisted absolute commands with a timeout and an
// output size cap. Anything off the allowlist is refused outright; the
// allowlist is fixed at compile time and never user-extensible.
type ExecRunner struct {
	Timeout   time.Duration
	MaxOutput int
}

// NewExecRunner returns a runner with the default limits.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Timeout:   30 * time.Second,
		MaxOutput: 8 << 20,
	}
}

// Run executes the command and returns up to MaxOutput bytes of stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, ok := allowedCommands[name]; !ok {
		return nil, fmt.Errorf("command %q is not allowlisted", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if r.MaxOutput > 0 && len(out) > r.MaxOutput {
		out = out[:r.MaxOutput]
	}
	return out, nil
}

package service

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/kjk/dumpbuf/log"
	"github.com/kjk/dumpbuf/record"
)

// Runner runs a command line
type Runner interface {
	Run(ctx context.Context, cmdLine string) error
}

// ShellRunner runs command line with a shell, with stdio attached
type ShellRunner struct {
	// defaults to $SHELL, then "sh" ("cmd" on Windows)
	Shell  string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ShellRunner) shell() (string, string) {
	if runtime.GOOS == "windows" {
		if r.Shell != "" {
			return r.Shell, "/C"
		}
		return "cmd", "/C"
	}
	sh := r.Shell
	if sh == "" {
		sh = os.Getenv("SHELL")
	}
	if sh == "" {
		sh = "sh"
	}
	return sh, "-c"
}

func (r *ShellRunner) Run(ctx context.Context, cmdLine string) error {
	sh, flag := r.shell()
	cmd := exec.CommandContext(ctx, sh, flag, cmdLine)
	cmd.Dir = r.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}
	log.Verbosef("running '%s'\n", cmd.String())
	return cmd.Run()
}

type ExecQuery struct {
	Key string
}

// CommandLine returns the command line stored under q.Key
func CommandLine(repo record.Repository, q ExecQuery) (string, error) {
	rec, err := repo.Get(q.Key)
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

// Exec looks up the record and runs its value as a command line.
// The repository is only read before the command starts.
func Exec(ctx context.Context, repo record.Repository, runner Runner, q ExecQuery) error {
	cmdLine, err := CommandLine(repo, q)
	if err != nil {
		return err
	}
	return runner.Run(ctx, cmdLine)
}

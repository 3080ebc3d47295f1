package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kjk/dumpbuf/log"
)

// run executes command line args and returns process exit code.
// Results and errors are written to stdout.
func run(args []string, stdout io.Writer) int {
	return runApp(&app{stdout: stdout}, args)
}

func runApp(a *app, args []string) int {
	defer log.Close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)

	timeStart := time.Now()
	cmd, err := root.ExecuteC()
	log.EventWithDuration("command", time.Since(timeStart), "name", cmd.CommandPath(), "ok", err == nil)
	if err != nil {
		fmt.Fprintf(a.stdout, "[ERROR]: %s\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

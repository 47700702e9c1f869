package main

import (
	"fmt"
	"io"
	"os"

	"github.com/vearutop/tilesplit"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "tilesplit:", err)
		return tilesplit.ExitCode(err)
	}
	return tilesplit.ExitOK
}

package main

import (
	"os"

	"github.com/annobatch/annobatch/internal/cli"
	"github.com/annobatch/annobatch/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the outcome to an exit code. Split
// from main so tests can exercise it without exiting the process.
func run() int {
	root := cli.NewRootCmd(version.GetVersion())
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

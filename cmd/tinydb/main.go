package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"

	"github.com/embeddb/embeddb/cmd/tinydb/command"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = append(args, "--help")
	}

	commands := map[string]cli.CommandFactory{
		"exec": func() (cli.Command, error) {
			return &command.ExecCommand{}, nil
		},
		"version": func() (cli.Command, error) {
			return &command.VersionCommand{}, nil
		},
	}

	c := &cli.CLI{
		Name:     "embeddb",
		Args:     args,
		Commands: commands,
		HelpFunc: cli.BasicHelpFunc("embeddb"),
	}

	exitCode, err := c.Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	os.Exit(exitCode)
}

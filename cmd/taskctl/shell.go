package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

const shellPrompt = "taskctl> "

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "shell",
		GroupID: "session",
		Short:   "Run commands interactively until exit or end of input",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.inShell = true
			defer func() { a.inShell = false }()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(a.out, shellPrompt)
				if !scanner.Scan() {
					fmt.Fprintln(a.out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				args, err := shlex.Split(line)
				if err != nil {
					printError(a.errOut, fmt.Errorf("parse: %w", err))
					continue
				}
				// Each line gets a fresh command tree so flag values do not leak between lines.
				a.run(args)
			}
		},
	}
}

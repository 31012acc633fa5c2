package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/util"
)

const (
	defaultAPI = "http://localhost:8080/api"
	dateLayout = "2006-01-02"
)

// app carries state shared by every command of one invocation.
type app struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	sessionPath string

	apiFlag string
	jsonOut bool
	session session
	ctx     context.Context
	inShell bool
}

func main() {
	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, sessionPath: defaultSessionPath(), ctx: context.Background()}
	os.Exit(a.run(os.Args[1:]))
}

// run executes one command line and returns the process exit code.
func (a *app) run(args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(a.ctx); err != nil {
		printError(a.errOut, err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Command line client for the task board API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSession(a.sessionPath)
			if err != nil {
				return err
			}
			a.session = s
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.apiFlag, "api", "", "API base URL (default: session, $TASKCTL_API or "+defaultAPI+")")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")

	root.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "work", Title: "Working With Tasks:"},
		&cobra.Group{ID: "plan", Title: "Planning:"},
	)
	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTaskCmd(a),
		newEpicCmd(a),
		newSprintCmd(a),
		newRefCmd(a),
		newUserCmd(a),
	)
	if !a.inShell {
		root.AddCommand(newShellCmd(a))
	}
	return root
}

func (a *app) apiURL() string {
	switch {
	case a.apiFlag != "":
		return a.apiFlag
	case a.session.API != "":
		return a.session.API
	default:
		return util.EnvOrDefault("TASKCTL_API", defaultAPI)
	}
}

// api returns a client for authenticated calls.
func (a *app) api() (*client.Client, error) {
	if a.session.Token == "" {
		return nil, errors.New("not logged in, run: taskctl login")
	}
	return client.New(a.apiURL(), client.WithToken(a.session.Token), client.WithTimeout(30*time.Second)), nil
}

// emit prints v as JSON in --json mode, otherwise calls human.
func (a *app) emit(v any, human func()) error {
	if a.jsonOut {
		return printJSON(a.out, v)
	}
	human()
	return nil
}

func requireArgs(names ...string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != len(names) {
			return fmt.Errorf("expected %d argument(s): %v", len(names), names)
		}
		return nil
	}
}

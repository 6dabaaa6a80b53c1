package cmdline2_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vanadium-labs/asynclock/cmdline2"
)

func newTestEnv() (*cmdline2.Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &cmdline2.Env{Stdout: &stdout, Stderr: &stderr, Vars: map[string]string{}}
	return env, &stdout, &stderr
}

func TestParseAndRunLeafCommand(t *testing.T) {
	var ran bool
	root := &cmdline2.Command{
		Name:  "demo",
		Short: "demo command",
		Long:  "demo command",
		Runner: cmdline2.RunnerFunc(func(env *cmdline2.Env, args []string) error {
			ran = true
			return nil
		}),
	}
	env, _, _ := newTestEnv()
	if err := cmdline2.ParseAndRun(root, env, nil); err != nil {
		t.Fatalf("ParseAndRun: %v", err)
	}
	if !ran {
		t.Fatal("leaf Runner was not invoked")
	}
}

func TestParseAndRunSubcommand(t *testing.T) {
	var which string
	mk := func(name string) *cmdline2.Command {
		return &cmdline2.Command{
			Name:  name,
			Short: name,
			Long:  name,
			Runner: cmdline2.RunnerFunc(func(env *cmdline2.Env, args []string) error {
				which = name
				return nil
			}),
		}
	}
	root := &cmdline2.Command{
		Name:     "demo",
		Short:    "demo command",
		Long:     "demo command",
		Children: []*cmdline2.Command{mk("alpha"), mk("beta")},
	}
	env, _, _ := newTestEnv()
	if err := cmdline2.ParseAndRun(root, env, []string{"beta"}); err != nil {
		t.Fatalf("ParseAndRun: %v", err)
	}
	if which != "beta" {
		t.Fatalf("ran %q, want beta", which)
	}
}

func TestUnknownSubcommandIsUsageError(t *testing.T) {
	root := &cmdline2.Command{
		Name:  "demo",
		Short: "demo command",
		Long:  "demo command",
		Children: []*cmdline2.Command{{
			Name:   "alpha",
			Short:  "alpha",
			Long:   "alpha",
			Runner: cmdline2.RunnerFunc(func(*cmdline2.Env, []string) error { return nil }),
		}},
	}
	env, _, _ := newTestEnv()
	err := cmdline2.ParseAndRun(root, env, []string{"nope"})
	if err != cmdline2.ErrUsage {
		t.Fatalf("err = %v, want ErrUsage", err)
	}
}

func TestHelpCommandPrintsUsage(t *testing.T) {
	root := &cmdline2.Command{
		Name:  "demo",
		Short: "demo command",
		Long:  "demo command",
		Children: []*cmdline2.Command{{
			Name:   "alpha",
			Short:  "run alpha",
			Long:   "alpha",
			Runner: cmdline2.RunnerFunc(func(*cmdline2.Env, []string) error { return nil }),
		}},
	}
	env, stdout, _ := newTestEnv()
	if err := cmdline2.ParseAndRun(root, env, []string{"help"}); err != nil {
		t.Fatalf("ParseAndRun: %v", err)
	}
	if !strings.Contains(stdout.String(), "alpha") {
		t.Fatalf("help output = %q, want it to mention subcommand %q", stdout.String(), "alpha")
	}
}

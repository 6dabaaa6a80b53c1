// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdline2

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"
)

// helpRunner is a Runner that implements the "help" functionality. Help is
// requested for the last command in rootPath, which must not be empty.
type helpRunner struct {
	rootPath []*Command
	width    int
}

func makeHelpRunner(path []*Command, env *Env) helpRunner {
	return helpRunner{path, env.width()}
}

// Run implements the Runner interface method.
func (h helpRunner) Run(env *Env, args []string) error {
	w := bufio.NewWriter(env.Stdout)
	err := runHelp(w, env.Stderr, args, h.rootPath, h.width)
	w.Flush()
	return err
}

// usageFunc is used as the implementation of the Env.Usage function.
func (h helpRunner) usageFunc(writer io.Writer) {
	w := bufio.NewWriter(writer)
	usage(w, h.rootPath, h.width, true)
	w.Flush()
}

const helpName = "help"

// newCommand returns a new help command that uses h as its Runner.
func (h helpRunner) newCommand() *Command {
	help := &Command{
		Runner: &h,
		Name:   helpName,
		Short:  "Display help for commands or topics",
		Long: `
Help with no args displays the usage of the parent command.

Help with args displays the usage of the specified sub-command or help topic.

"help ..." recursively displays help for all commands and topics.
`,
		ArgsName: "[command/topic ...]",
		ArgsLong: `
[command/topic ...] optionally identifies a specific sub-command or help topic.
`,
	}
	help.Flags.IntVar(&h.width, "width", h.width, `
Format output to this target width in runes. Defaults to 80, or the value of
the CMDLINE_WIDTH environment variable if set.
`)
	cleanTree([]*Command{help})
	return help
}

// runHelp implements the run-time behavior of the help command.
func runHelp(w *bufio.Writer, stderr io.Writer, args []string, path []*Command, width int) error {
	if len(args) == 0 {
		usage(w, path, width, true)
		return nil
	}
	if args[0] == "..." {
		usageAll(w, path, width, true)
		return nil
	}
	cmd, subName, subArgs := path[len(path)-1], args[0], args[1:]
	for _, child := range cmd.Children {
		if child.Name == subName {
			return runHelp(w, stderr, subArgs, append(path, child), width)
		}
	}
	if helpName == subName {
		help := helpRunner{path, width}.newCommand()
		return runHelp(w, stderr, subArgs, append(path, help), width)
	}
	for _, topic := range cmd.Topics {
		if topic.Name == subName {
			fmt.Fprintln(w, topic.Long)
			return nil
		}
	}
	fmt.Fprint(stderr, "ERROR: ")
	fmt.Fprintf(stderr, "%s: unknown command or topic %q", pathName(path), subName)
	fmt.Fprint(stderr, "\n\n")
	usage(w, path, width, true)
	w.Flush()
	return ErrUsage
}

func lineBreak(w *bufio.Writer, width int) {
	w.Flush()
	fmt.Fprintln(w, strings.Repeat("=", width))
}

// needsHelpChild returns true if cmd needs a default help command appended
// to its children: every command with children that doesn't already have a
// "help" child needs one.
func needsHelpChild(cmd *Command) bool {
	for _, child := range cmd.Children {
		if child.Name == helpName {
			return false
		}
	}
	return len(cmd.Children) > 0
}

// usageAll prints usage recursively via DFS from path onward.
func usageAll(w *bufio.Writer, path []*Command, width int, firstCall bool) {
	cmd, cmdPath := path[len(path)-1], pathName(path)
	if !firstCall {
		lineBreak(w, width)
		fmt.Fprintln(w, cmdPath)
		fmt.Fprintln(w)
	}
	usage(w, path, width, firstCall)
	for _, child := range cmd.Children {
		usageAll(w, append(path, child), width, false)
	}
	if firstCall && needsHelpChild(cmd) {
		help := helpRunner{path, width}.newCommand()
		usageAll(w, append(path, help), width, false)
	}
	for _, topic := range cmd.Topics {
		lineBreak(w, width)
		fmt.Fprintln(w, cmdPath+" "+topic.Name+" - help topic")
		fmt.Fprintln(w)
		fmt.Fprintln(w, topic.Long)
	}
}

// usage prints the usage of the last command in path to w. firstCall is
// false when printing usage for multiple commands via usageAll, to avoid
// repeating the help command and global flags at every level.
func usage(w *bufio.Writer, path []*Command, width int, firstCall bool) {
	cmd, cmdPath := path[len(path)-1], pathName(path)
	children := cmd.Children
	if firstCall && needsHelpChild(cmd) {
		help := helpRunner{path, width}.newCommand()
		children = append(children, help)
	}
	fmt.Fprintln(w, strings.TrimSpace(cmd.Long))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	cmdPathF := "   " + cmdPath
	if countFlags(&cmd.Flags) > 0 {
		cmdPathF += " [flags]"
	}
	if cmd.Runner != nil {
		if cmd.ArgsName != "" {
			fmt.Fprintln(w, cmdPathF, cmd.ArgsName)
		} else {
			fmt.Fprintln(w, cmdPathF)
		}
	}
	if len(children) > 0 {
		fmt.Fprintln(w, cmdPathF, "<command>")
	}
	const minNameWidth = 11
	if len(children) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The", cmdPath, "commands are:")
		nameWidth := minNameWidth
		for _, child := range children {
			if len(child.Name) > nameWidth {
				nameWidth = len(child.Name)
			}
		}
		for _, child := range children {
			fmt.Fprintf(w, "   %-*s %s\n", nameWidth, child.Name, child.Short)
		}
		if firstCall {
			fmt.Fprintf(w, "Run \"%s help [command]\" for command usage.\n", cmdPath)
		}
	}
	if cmd.Runner != nil && cmd.ArgsLong != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.TrimSpace(cmd.ArgsLong))
	}
	if len(cmd.Topics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The", cmdPath, "additional help topics are:")
		nameWidth := minNameWidth
		for _, topic := range cmd.Topics {
			if len(topic.Name) > nameWidth {
				nameWidth = len(topic.Name)
			}
		}
		for _, topic := range cmd.Topics {
			fmt.Fprintf(w, "   %-*s %s\n", nameWidth, topic.Name, topic.Short)
		}
		if firstCall {
			fmt.Fprintf(w, "Run \"%s help [topic]\" for topic details.\n", cmdPath)
		}
	}
	flagsUsage(w, path, firstCall)
}

func flagsUsage(w *bufio.Writer, path []*Command, firstCall bool) {
	cmd, cmdPath := path[len(path)-1], pathName(path)
	if countFlags(&cmd.Flags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The", cmdPath, "flags are:")
		printFlags(w, &cmd.Flags)
	}
	if !firstCall {
		return
	}
	if countFlags(globalFlags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The global flags are:")
		printFlags(w, globalFlags)
	}
}

func countFlags(flags *flag.FlagSet) (num int) {
	flags.VisitAll(func(*flag.Flag) { num++ })
	return
}

func printFlags(w *bufio.Writer, flags *flag.FlagSet) {
	flags.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(w, " -%s=%v\n", f.Name, f.Value.String())
		fmt.Fprintf(w, "   %s\n", f.Usage)
	})
}

// globalFlags holds flags registered on flag.CommandLine, treated as
// available anywhere a command-specific flag is allowed.
var globalFlags = flag.CommandLine

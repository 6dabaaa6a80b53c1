// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdline2

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnvFromOS returns a new environment based on the operating system.
func EnvFromOS() *Env {
	return &Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Vars:   environToMap(os.Environ()),
	}
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

// NewEnv is a convenience for EnvFromOS, matching the name cmdline.Main
// constructs internally.
func NewEnv() *Env { return EnvFromOS() }

// Env represents the environment for command parsing and running. Typically
// EnvFromOS (or NewEnv) is used to produce a default environment; tests set
// it explicitly for finer control over input/output.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Vars   map[string]string

	// Usage prints usage information to w. Set by Main or Parse to the
	// usage of the leaf command that was resolved.
	Usage func(w io.Writer)
}

// UsageErrorf prints the error message represented by the printf-style
// format and args, followed by the output of the Usage function, and
// returns ErrUsage.
func (e *Env) UsageErrorf(format string, args ...interface{}) error {
	fmt.Fprint(e.Stderr, "ERROR: ")
	fmt.Fprintf(e.Stderr, format, args...)
	fmt.Fprint(e.Stderr, "\n\n")
	if e.Usage != nil {
		e.Usage(e.Stderr)
	} else {
		fmt.Fprint(e.Stderr, "usage error\n")
	}
	return ErrUsage
}

func (e *Env) width() int {
	if width, err := strconv.Atoi(e.Vars["CMDLINE_WIDTH"]); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}

const defaultWidth = 80

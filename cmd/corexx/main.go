// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The corexx tool parses, runs, and introspects classic-Rexx source
// under the corexx execution engine. Run "corexx help" for a list of
// commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	root := &cobra.Command{
		Use:   "corexx",
		Short: "corexx parses, runs, and introspects classic-Rexx programs",
	}
	root.AddCommand(runCmd)
	root.AddCommand(replCmd)
	root.AddCommand(serveCmd)
	root.AddCommand(inspectCmd)
	root.AddCommand(imageCmd)

	if err := root.Execute(); err != nil {
		exitf("%v\n", err)
	}
}

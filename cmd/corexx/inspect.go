// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oorexx/corexx/program/client"
)

var inspectAddr string

var inspectCmd = &cobra.Command{
	Use:   "inspect <expr>",
	Short: "query a running corexx server (started with 'corexx serve')",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		remote, err := client.Dial("tcp", inspectAddr)
		if err != nil {
			exitf("dial %s: %v\n", inspectAddr, err)
		}
		defer remote.Close()

		stats, err := remote.HeapStats()
		if err != nil {
			exitf("HeapStats: %v\n", err)
		}
		t := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(t, "live objects\t%d\n", stats.LiveObjects)
		fmt.Fprintf(t, "pending uninits\t%d\n", stats.PendingUninits)
		t.Flush()

		results, err := remote.Eval(args[0])
		if err != nil {
			exitf("Eval %q: %v\n", args[0], err)
		}
		for _, r := range results {
			fmt.Println(r)
		}
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectAddr, "addr", "localhost:9999", "address of a running 'corexx serve'")
}

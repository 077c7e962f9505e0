// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"net/rpc"
	"os"

	"github.com/spf13/cobra"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/parser"
	"github.com/oorexx/corexx/program/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <file.rex>",
	Short: "translate a file and expose it for remote introspection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lines, err := readLines(args[0])
		if err != nil {
			exitf("%v\n", err)
		}

		h := heap.New(heap.Options{SegmentQuantum: 1 << 16, SingleObjectThreshold: 1 << 12, ExactFitLegal: true})
		mgr := activity.NewManager(h)
		act := mgr.NewActivity(1)
		act.PushFrame(activity.NewFrame(activity.FrameProgram, "MAIN", args[0]))

		dict := parser.NewDictionary(false)
		lex := parser.NewLexer(parser.NewSliceReader(lines))
		if _, err := parser.NewTranslator(lex, dict).Translate(); err != nil {
			exitf("%s: %v\n", args[0], err)
		}

		srv := server.New(h, act, args[0], nil)
		rpcServer := rpc.NewServer()
		if err := rpcServer.RegisterName("Server", srv); err != nil {
			exitf("%v\n", err)
		}

		l, err := net.Listen("tcp", serveAddr)
		if err != nil {
			exitf("%v\n", err)
		}
		fmt.Fprintf(os.Stderr, "listening on %s\n", l.Addr())
		rpcServer.Accept(l)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:9999", "address to listen on")
}

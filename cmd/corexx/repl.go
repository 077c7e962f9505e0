// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/eval"
	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/parser"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "translate classic-Rexx clauses one line at a time",
	Run: func(cmd *cobra.Command, args []string) {
		runREPL()
	},
}

// runREPL reads one physical line at a time and feeds it through a fresh
// Translator, so each entry is reported independently rather than
// accumulated into one Package; the heap and activity persist across
// lines so :heap and :trace reflect the whole session.
func runREPL() {
	rl, err := readline.New("corexx> ")
	if err != nil {
		exitf("%v\n", err)
	}
	defer rl.Close()

	h := heap.New(heap.Options{SegmentQuantum: 1 << 16, SingleObjectThreshold: 1 << 12, ExactFitLegal: true})
	mgr := activity.NewManager(h)
	act := mgr.NewActivity(1)
	act.Acquire()
	defer act.Release()
	act.PushFrame(activity.NewFrame(activity.FrameProgram, "MAIN", "repl"))
	defer act.PopFrame(false)
	vars := eval.NewVarScope()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			exitf("%v\n", err)
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":heap":
			fmt.Fprintf(os.Stdout, "live objects %d, pending uninits %d\n", h.LiveObjectCount(), h.PendingUninits())
			continue
		case ":trace":
			for _, l := range act.Traceback() {
				fmt.Fprintln(os.Stdout, l)
			}
			continue
		case ":quit":
			return
		}

		dict := parser.NewDictionary(false)
		lex := parser.NewLexer(parser.NewSliceReader([]string{line}))
		pkg, err := parser.NewTranslator(lex, dict).Translate()
		if err != nil {
			fmt.Fprintf(os.Stdout, "error: %v\n", err)
			continue
		}

		it := eval.NewInterpWithVars(act, pkg, vars, os.Stdout, "repl")
		rc, halted, err := it.EvalLines(pkg.Instructions)
		if err != nil {
			fmt.Fprintf(os.Stdout, "error: %v\n", err)
			continue
		}
		if halted {
			fmt.Fprintf(os.Stdout, "rc %d\n", rc)
		}
	}
}

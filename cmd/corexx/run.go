// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/eval"
	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/parser"
)

var runCmd = &cobra.Command{
	Use:   "run <file.rex>",
	Short: "translate a classic-Rexx source file and report its clause structure",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lines, err := readLines(args[0])
		if err != nil {
			exitf("%v\n", err)
		}

		h := heap.New(heap.Options{SegmentQuantum: 1 << 16, SingleObjectThreshold: 1 << 12, ExactFitLegal: true})
		mgr := activity.NewManager(h)
		act := mgr.NewActivity(1)

		lex := parser.NewLexer(parser.NewSliceReader(lines))
		dict := parser.NewDictionary(false)
		pkg, err := parser.ParseProgram(lex, dict)
		if err != nil {
			exitf("%s: %v\n", args[0], err)
		}

		t := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(t, "clauses\t%d\n", len(pkg.Instructions))
		fmt.Fprintf(t, "labels\t%d\n", len(pkg.Labels))
		fmt.Fprintf(t, "max stack\t%d\n", pkg.MaxStack)
		fmt.Fprintf(t, "variable slots\t%d\n", pkg.VariableSlots)
		fmt.Fprintf(t, "live objects\t%d\n", h.LiveObjectCount())
		fmt.Fprintf(t, "pending uninits\t%d\n", h.PendingUninits())
		t.Flush()

		for _, instr := range pkg.Instructions {
			printInstruction(os.Stdout, instr, 0)
		}

		rc := eval.NewInterp(act, pkg, os.Stdout, args[0]).Run()
		if rc != 0 {
			os.Exit(rc)
		}
	},
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines, s.Err()
}

func printInstruction(w *os.File, instr *parser.Instruction, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(w, "%s%d: %s\n", indent, instr.Line, kindName(instr.Kind))
	for _, child := range instr.Body {
		printInstruction(w, child, depth+1)
	}
	for _, child := range instr.Else {
		printInstruction(w, child, depth+1)
	}
}

func kindName(k parser.InstructionKind) string {
	switch k {
	case parser.InstrExpression:
		return "EXPRESSION"
	case parser.InstrIf:
		return "IF"
	case parser.InstrElse:
		return "ELSE"
	case parser.InstrDo:
		return "DO"
	case parser.InstrLoop:
		return "LOOP"
	case parser.InstrSelect:
		return "SELECT"
	case parser.InstrWhen:
		return "WHEN"
	case parser.InstrOtherwise:
		return "OTHERWISE"
	case parser.InstrEnd:
		return "END"
	case parser.InstrCall:
		return "CALL"
	case parser.InstrSignal:
		return "SIGNAL"
	case parser.InstrLabel:
		return "LABEL"
	case parser.InstrReturn:
		return "RETURN"
	case parser.InstrExit:
		return "EXIT"
	default:
		return "?"
	}
}

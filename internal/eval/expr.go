// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/parser"
	"github.com/oorexx/corexx/internal/value"
)

// evalExpr walks one parser.Expr and returns its value. The second
// result is a non-empty ctrl only when evaluating a sub-expression
// raised a condition that resolved to a SIGNAL-style jump (spec.md
// §4.2.3): division by zero is the only expression-level raise this
// evaluator performs, so that is the only path that can return one.
func (it *Interp) evalExpr(e *parser.Expr) (value.Ref, ctrl, error) {
	if e == nil {
		return value.NewString(""), ctrl{}, nil
	}
	switch e.Kind {
	case parser.ExprLiteral:
		return literalValue(e.Text), ctrl{}, nil
	case parser.ExprSymbol:
		return it.lookupVar(e), ctrl{}, nil
	case parser.ExprParen:
		return it.evalExpr(e.Left)
	case parser.ExprPrefix:
		return it.evalPrefix(e)
	case parser.ExprBinary:
		return it.evalBinary(e)
	case parser.ExprConcat:
		return it.evalConcat(e)
	case parser.ExprFunctionCall:
		return it.evalCall(e)
	default:
		return nil, ctrl{}, fmt.Errorf("expression kind %d is not evaluated by this interpreter", e.Kind)
	}
}

func (it *Interp) lookupVar(e *parser.Expr) value.Ref {
	name := exprVarName(e)
	if v, ok := it.vars.Lookup(name); ok {
		return v
	}
	// Uninitialized: a plain symbol's value is its own name, the
	// long-standing Rexx default (NOVALUE trapping is not wired here).
	return value.NewString(name)
}

func exprVarName(e *parser.Expr) string {
	if e.Var != nil {
		return e.Var.Name
	}
	return strings.ToUpper(e.Text)
}

func (it *Interp) evalPrefix(e *parser.Expr) (value.Ref, ctrl, error) {
	v, c, err := it.evalExpr(e.Left)
	if err != nil || c.kind != ctrlNone {
		return nil, c, err
	}
	switch e.Text {
	case "-":
		n, _ := numberOf(v)
		return &value.Integer{Value: -n}, ctrl{}, nil
	case "+":
		return v, ctrl{}, nil
	case "\\":
		return boolValue(!truthy(v)), ctrl{}, nil
	default:
		return nil, ctrl{}, fmt.Errorf("unsupported prefix operator %q", e.Text)
	}
}

func (it *Interp) evalConcat(e *parser.Expr) (value.Ref, ctrl, error) {
	l, c, err := it.evalExpr(e.Left)
	if err != nil || c.kind != ctrlNone {
		return nil, c, err
	}
	r, c, err := it.evalExpr(e.Right)
	if err != nil || c.kind != ctrlNone {
		return nil, c, err
	}
	return value.NewString(stringOf(l) + " " + stringOf(r)), ctrl{}, nil
}

// evalBinary evaluates every operator expr.go's precedence table
// recognises except the blank concat, which arrives as its own
// ExprConcat kind. Assignment ("=" at the top of a whole clause) is
// recognised one layer up, in execExpression: by the time evalBinary
// sees "=" it is always the comparison operator.
func (it *Interp) evalBinary(e *parser.Expr) (value.Ref, ctrl, error) {
	l, c, err := it.evalExpr(e.Left)
	if err != nil || c.kind != ctrlNone {
		return nil, c, err
	}
	r, c, err := it.evalExpr(e.Right)
	if err != nil || c.kind != ctrlNone {
		return nil, c, err
	}
	switch e.Text {
	case "+", "-", "*", "/", "%", "//":
		return it.arith(e.Text, l, r)
	case "=", "==":
		return boolValue(equalValues(l, r)), ctrl{}, nil
	case "\\=", "\\==":
		return boolValue(!equalValues(l, r)), ctrl{}, nil
	case ">", "<", ">=", "<=", "><", "<>", "\\>", "\\<":
		return compareValues(e.Text, l, r), ctrl{}, nil
	case "&":
		return boolValue(truthy(l) && truthy(r)), ctrl{}, nil
	case "|":
		return boolValue(truthy(l) || truthy(r)), ctrl{}, nil
	case "&&":
		return boolValue(truthy(l) != truthy(r)), ctrl{}, nil
	case "||":
		return value.NewString(stringOf(l) + stringOf(r)), ctrl{}, nil
	default:
		return nil, ctrl{}, fmt.Errorf("unsupported operator %q", e.Text)
	}
}

// arith performs the native-range arithmetic operators (+ - * / % //), raising
// SYNTAX on division by zero (spec.md §7) rather than panicking.
func (it *Interp) arith(op string, l, r value.Ref) (value.Ref, ctrl, error) {
	a, aok := numberOf(l)
	b, bok := numberOf(r)
	if !aok || !bok {
		return nil, ctrl{}, fmt.Errorf("non-numeric operand to %q", op)
	}
	switch op {
	case "+":
		return &value.Integer{Value: a + b}, ctrl{}, nil
	case "-":
		return &value.Integer{Value: a - b}, ctrl{}, nil
	case "*":
		return &value.Integer{Value: a * b}, ctrl{}, nil
	case "/", "%", "//":
		if b == 0 {
			c, err := it.raise(&activity.Condition{
				Name:        activity.CondSyntax,
				Description: "attempt to divide by zero",
				Code:        "42.1",
			})
			return nil, c, err
		}
		switch op {
		case "/":
			return &value.Integer{Value: a / b}, ctrl{}, nil
		case "%":
			return &value.Integer{Value: a / b}, ctrl{}, nil
		default: // "//"
			return &value.Integer{Value: a % b}, ctrl{}, nil
		}
	}
	return nil, ctrl{}, fmt.Errorf("unreachable operator %q", op)
}

// evalCall dispatches an ExprFunctionCall to a ::ROUTINE or to one of
// the handful of built-ins spec.md §8's literal scenarios exercise.
// Anything else is reported rather than silently returning a placeholder.
func (it *Interp) evalCall(e *parser.Expr) (value.Ref, ctrl, error) {
	name := strings.ToUpper(e.Text)
	switch name {
	case "ARG":
		return it.builtinArg(e.Args)
	case "CONDITION":
		return it.builtinCondition(e.Args)
	}
	if d, ok := it.pkg.Routines[name]; ok {
		args, c, err := it.evalArgs(e.Args)
		if err != nil || c.kind != ctrlNone {
			return nil, c, err
		}
		v, err := it.invokeRoutine(d, args)
		return v, ctrl{}, err
	}
	return nil, ctrl{}, fmt.Errorf("unknown routine or built-in function %q", e.Text)
}

func (it *Interp) evalArgs(exprs []*parser.Expr) ([]value.Ref, ctrl, error) {
	out := make([]value.Ref, len(exprs))
	for i, a := range exprs {
		if a == nil {
			continue
		}
		v, c, err := it.evalExpr(a)
		if err != nil || c.kind != ctrlNone {
			return nil, c, err
		}
		out[i] = v
	}
	return out, ctrl{}, nil
}

// builtinArg implements the ARG() built-in function form (spec.md §4.3:
// a routine's positional arguments, 1-based). The no-parens ARG
// instruction form real Rexx also offers is not recognised by this
// package's clause grammar and so isn't handled here.
func (it *Interp) builtinArg(exprs []*parser.Expr) (value.Ref, ctrl, error) {
	n := int64(1)
	if len(exprs) > 0 && exprs[0] != nil {
		v, c, err := it.evalExpr(exprs[0])
		if err != nil || c.kind != ctrlNone {
			return nil, c, err
		}
		n, _ = numberOf(v)
	}
	idx := int(n) - 1
	if idx < 0 || idx >= len(it.args) || it.args[idx] == nil {
		return value.NewString(""), ctrl{}, nil
	}
	return it.args[idx], ctrl{}, nil
}

// builtinCondition implements CONDITION(selector), spec.md §4.2.3's
// inspection function for the activity's current condition object.
func (it *Interp) builtinCondition(exprs []*parser.Expr) (value.Ref, ctrl, error) {
	sel := "C"
	if len(exprs) > 0 && exprs[0] != nil {
		v, c, err := it.evalExpr(exprs[0])
		if err != nil || c.kind != ctrlNone {
			return nil, c, err
		}
		sel = strings.ToUpper(stringOf(v))
	}
	cond := it.act.Condition()
	if cond == nil {
		return value.NewString(""), ctrl{}, nil
	}
	switch sel {
	case "C":
		return value.NewString(cond.Name), ctrl{}, nil
	case "D":
		return value.NewString(cond.Description), ctrl{}, nil
	case "I":
		return value.NewString(cond.Code), ctrl{}, nil
	default:
		return value.NewString(""), ctrl{}, nil
	}
}

// literalValue builds the value for an ExprLiteral. The lexer already
// strips a string literal's quotes (scanString), leaving no marker to
// tell a quoted numeral from a bare one — which matches real Rexx, where
// "123" and 123 are the same value, not distinct types.
func literalValue(text string) value.Ref {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &value.Integer{Value: n}
	}
	return value.NewString(text)
}

func numberOf(v value.Ref) (int64, bool) {
	switch t := v.(type) {
	case *value.Integer:
		return t.Value, true
	case *value.String:
		n, err := strconv.ParseInt(strings.TrimSpace(t.Text), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func stringOf(v value.Ref) string {
	switch t := v.(type) {
	case *value.Integer:
		return strconv.FormatInt(t.Value, 10)
	case *value.String:
		return t.Text
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truthy(v value.Ref) bool {
	n, ok := numberOf(v)
	return ok && n != 0
}

func boolValue(b bool) value.Ref {
	if b {
		return &value.Integer{Value: 1}
	}
	return &value.Integer{Value: 0}
}

func equalValues(l, r value.Ref) bool {
	if ln, lok := numberOf(l); lok {
		if rn, rok := numberOf(r); rok {
			return ln == rn
		}
	}
	return stringOf(l) == stringOf(r)
}

func compareValues(op string, l, r value.Ref) value.Ref {
	var less, greater bool
	if ln, lok := numberOf(l); lok {
		if rn, rok := numberOf(r); rok {
			less, greater = ln < rn, ln > rn
		}
	} else {
		ls, rs := stringOf(l), stringOf(r)
		less, greater = ls < rs, ls > rs
	}
	switch op {
	case ">":
		return boolValue(greater)
	case "<":
		return boolValue(less)
	case ">=", "\\<":
		return boolValue(!less)
	case "<=", "\\>":
		return boolValue(!greater)
	default: // "><", "<>": not-equal
		return boolValue(less || greater)
	}
}

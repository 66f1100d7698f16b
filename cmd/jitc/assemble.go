// The assembler in this file is a small textual front end over the
// jit builder API: one function per `func ... end` block, one
// instruction per line. It is grounded on the teacher's vm/parse.go,
// generalized from GVM's single flat instruction stream (where a label
// is just "the current line number") to a three-address IR where a
// label is an opaque jit builder object bound once per function. The
// two-pass "see every label name before resolving forward references"
// structure survives unchanged: pass one walks the text once recording
// every `name:` line as an ssa.Label via NewLabel, pass two walks it
// again emitting instructions and binding each label at its line.
package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"jit/internal/ssa"
	"jit/internal/typesys"

	jit "jit"
)

// typeByName maps the assembler's scalar type keywords onto the type
// system's pinned singletons; struct/union/tagged types are out of scope
// for this text format, the same way the teacher's assembly format never
// needed to express GVM's (entirely untyped) stack values.
func typeByName(name string) (*typesys.Type, error) {
	switch name {
	case "int":
		return typesys.IntType, nil
	case "uint":
		return typesys.UIntType, nil
	case "long":
		return typesys.LongType, nil
	case "ulong":
		return typesys.ULongType, nil
	case "float32":
		return typesys.Float32Type, nil
	case "float64":
		return typesys.Float64Type, nil
	case "ptr":
		return typesys.VoidPtrType, nil
	case "void":
		return typesys.VoidType, nil
	default:
		return nil, fmt.Errorf("asm: unknown type %q", name)
	}
}

// funcDecl is one parsed `func name(type name, ...) rettype` header.
type funcDecl struct {
	name       string
	paramNames []string
	paramTypes []*typesys.Type
	retType    *typesys.Type
	bodyLines  []string
}

// parseProgram splits src into one funcDecl per `func ... end` block.
func parseProgram(r io.Reader) ([]*funcDecl, error) {
	sc := bufio.NewScanner(r)
	var decls []*funcDecl
	var cur *funcDecl
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "func "):
			d, err := parseFuncHeader(line)
			if err != nil {
				return nil, err
			}
			cur = d
		case line == "end":
			if cur == nil {
				return nil, fmt.Errorf("asm: 'end' without matching 'func'")
			}
			decls = append(decls, cur)
			cur = nil
		default:
			if cur == nil {
				return nil, fmt.Errorf("asm: instruction outside a func block: %q", line)
			}
			cur.bodyLines = append(cur.bodyLines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		return nil, fmt.Errorf("asm: func %q missing 'end'", cur.name)
	}
	return decls, nil
}

// parseFuncHeader parses `func name(type name, type name) rettype`.
func parseFuncHeader(line string) (*funcDecl, error) {
	line = strings.TrimPrefix(line, "func ")
	open := strings.Index(line, "(")
	close := strings.Index(line, ")")
	if open < 0 || close < 0 || close < open {
		return nil, fmt.Errorf("asm: malformed func header: %q", line)
	}
	name := strings.TrimSpace(line[:open])
	paramsPart := strings.TrimSpace(line[open+1 : close])
	retName := strings.TrimSpace(line[close+1:])
	if retName == "" {
		retName = "void"
	}
	retType, err := typeByName(retName)
	if err != nil {
		return nil, err
	}

	d := &funcDecl{name: name, retType: retType}
	if paramsPart != "" {
		for _, p := range strings.Split(paramsPart, ",") {
			fields := strings.Fields(strings.TrimSpace(p))
			if len(fields) != 2 {
				return nil, fmt.Errorf("asm: malformed parameter %q", p)
			}
			pt, err := typeByName(fields[0])
			if err != nil {
				return nil, err
			}
			d.paramTypes = append(d.paramTypes, pt)
			d.paramNames = append(d.paramNames, fields[1])
		}
	}
	return d, nil
}

// builderState tracks one function's symbol table (names -> values) and
// label table (names -> labels) while its body is being emitted.
type builderState struct {
	f      *ssa.Function
	vals   map[string]*ssa.Value
	labels map[string]*ssa.Label
}

// Assemble builds every function declared in src against ctx, returning
// them keyed by name. Functions may call each other (including
// forward/self references) since every name is registered before any
// body is emitted.
func Assemble(ctx *jit.Context, src io.Reader) (map[string]*jit.Function, error) {
	decls, err := parseProgram(src)
	if err != nil {
		return nil, err
	}

	funcs := make(map[string]*jit.Function, len(decls))
	states := make(map[string]*builderState, len(decls))
	for _, d := range decls {
		sig := typesys.CreateSignature(typesys.ABICdecl, d.retType, d.paramTypes, false)
		fn := ctx.CreateFunction(sig)
		st := &builderState{f: fn.IR(), vals: map[string]*ssa.Value{}, labels: map[string]*ssa.Label{}}
		for i, name := range d.paramNames {
			st.vals[name] = st.f.GetParam(i)
		}
		// Pre-scan labels so forward branches resolve.
		for _, line := range d.bodyLines {
			if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
				st.labels[strings.TrimSuffix(line, ":")] = st.f.NewLabel()
			}
		}
		funcs[d.name] = fn
		states[d.name] = st
	}

	for _, d := range decls {
		st := states[d.name]
		for _, line := range d.bodyLines {
			if err := assembleLine(line, st, funcs); err != nil {
				return nil, fmt.Errorf("asm: func %s: %q: %w", d.name, line, err)
			}
		}
	}
	return funcs, nil
}

func assembleLine(line string, st *builderState, funcs map[string]*jit.Function) error {
	if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
		lbl := st.labels[strings.TrimSuffix(line, ":")]
		return st.f.BindLabel(lbl)
	}

	if eq := strings.Index(line, "="); eq >= 0 {
		dest := strings.TrimSpace(line[:eq])
		rhs := strings.TrimSpace(line[eq+1:])
		v, err := assembleExpr(rhs, st, funcs)
		if err != nil {
			return err
		}
		st.vals[dest] = v
		return nil
	}

	fields := strings.Fields(line)
	op := fields[0]
	switch op {
	case "ret":
		v, err := st.operand(fields[1])
		if err != nil {
			return err
		}
		return st.f.InsnReturn(v)
	case "ret.void":
		return st.f.InsnReturnVoid()
	case "br":
		return st.f.InsnBranch(st.label(fields[1]))
	case "brift":
		v, err := st.operand(fields[1])
		if err != nil {
			return err
		}
		return st.f.InsnBranchIfTrue(v, st.label(fields[2]))
	case "briff":
		v, err := st.operand(fields[1])
		if err != nil {
			return err
		}
		return st.f.InsnBranchIfFalse(v, st.label(fields[2]))
	case "brifeq", "brifne", "briflt", "brifle", "brifgt", "brifge":
		a, err := st.operand(fields[1])
		if err != nil {
			return err
		}
		b, err := st.operand(fields[2])
		if err != nil {
			return err
		}
		lbl := st.label(fields[3])
		switch op {
		case "brifeq":
			return st.f.InsnBranchIfEq(a, b, lbl)
		case "brifne":
			return st.f.InsnBranchIfNe(a, b, lbl)
		case "briflt":
			return st.f.InsnBranchIfLt(a, b, lbl)
		case "brifle":
			return st.f.InsnBranchIfLe(a, b, lbl)
		case "brifgt":
			return st.f.InsnBranchIfGt(a, b, lbl)
		default:
			return st.f.InsnBranchIfGe(a, b, lbl)
		}
	case "call":
		// call funcname(args...) for effect only (no result captured).
		_, err := assembleCall(line, st, funcs)
		return err
	default:
		return fmt.Errorf("unrecognized statement")
	}
}

// assembleExpr handles `dest = op a b` and `dest = call name(args...)`.
func assembleExpr(rhs string, st *builderState, funcs map[string]*jit.Function) (*ssa.Value, error) {
	if strings.Contains(rhs, "(") {
		return assembleCall(rhs, st, funcs)
	}
	fields := strings.Fields(rhs)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	op := fields[0]
	if op == "const.int" {
		n, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, err
		}
		return st.f.CreateIntConstant(int32(n)), nil
	}
	if op == "const.long" {
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, err
		}
		return st.f.CreateLongConstant(n), nil
	}

	a, err := st.operand(fields[1])
	if err != nil {
		return nil, err
	}
	if len(fields) == 2 {
		switch op {
		case "neg":
			return st.f.InsnNeg(a)
		case "not":
			return st.f.InsnNot(a)
		}
		return nil, fmt.Errorf("unrecognized unary operator %q", op)
	}
	b, err := st.operand(fields[2])
	if err != nil {
		return nil, err
	}
	switch op {
	case "add":
		return st.f.InsnAdd(a, b)
	case "sub":
		return st.f.InsnSub(a, b)
	case "mul":
		return st.f.InsnMul(a, b)
	case "div":
		return st.f.InsnDiv(a, b)
	case "rem":
		return st.f.InsnRem(a, b)
	case "and":
		return st.f.InsnAnd(a, b)
	case "or":
		return st.f.InsnOr(a, b)
	case "xor":
		return st.f.InsnXor(a, b)
	case "eq":
		return st.f.InsnEq(a, b)
	case "ne":
		return st.f.InsnNe(a, b)
	case "lt":
		return st.f.InsnLt(a, b)
	case "le":
		return st.f.InsnLe(a, b)
	case "gt":
		return st.f.InsnGt(a, b)
	case "ge":
		return st.f.InsnGe(a, b)
	default:
		return nil, fmt.Errorf("unrecognized binary operator %q", op)
	}
}

// assembleCall parses `name(arg, arg, ...)`, looks up name among the
// program's other declared functions, and emits a direct call.
func assembleCall(text string, st *builderState, funcs map[string]*jit.Function) (*ssa.Value, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "call ")
	open := strings.Index(text, "(")
	close := strings.LastIndex(text, ")")
	if open < 0 || close < 0 {
		return nil, fmt.Errorf("malformed call %q", text)
	}
	name := strings.TrimSpace(text[:open])
	target, ok := funcs[name]
	if !ok {
		return nil, fmt.Errorf("call to undeclared function %q", name)
	}
	argsPart := strings.TrimSpace(text[open+1 : close])
	var args []*ssa.Value
	if argsPart != "" {
		for _, a := range strings.Split(argsPart, ",") {
			v, err := st.operand(strings.TrimSpace(a))
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
	}
	return st.f.InsnCallDirect(target.IR(), args, 0)
}

func (st *builderState) operand(name string) (*ssa.Value, error) {
	if v, ok := st.vals[name]; ok {
		return v, nil
	}
	if n, err := strconv.ParseInt(name, 10, 32); err == nil {
		return st.f.CreateIntConstant(int32(n)), nil
	}
	return nil, fmt.Errorf("undefined value %q", name)
}

func (st *builderState) label(name string) *ssa.Label {
	return st.labels[name]
}

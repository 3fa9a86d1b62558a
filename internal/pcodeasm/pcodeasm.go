// Package pcodeasm reads a small line-oriented text form of a single
// p-code function — a plain-text surface for exercising the engine
// from the command line without a real lifter attached.
//
// Grammar, one statement per line, blank lines and lines starting with
// "#" ignored:
//
//	v<N> input <size>
//	v<N> const <size> <value>
//	v<N> <OPCODE> <operand> [<operand> ...] <size>
//	output v<N>
//
// <value> accepts Go integer literal syntax (0x.., 0.., decimal).
// Operands in a generic op line name previously-declared v<N>s; the
// trailing token is always the output size in bytes. Varnodes must be
// declared in an order where every operand has already appeared.
package pcodeasm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// opByName inverts pcode's name table; it is built once at package
// initialization since the table itself is unexported.
var opByName = buildOpByName()

func buildOpByName() map[string]pcode.OpCode {
	m := make(map[string]pcode.OpCode)
	for op := pcode.OpCode(0); op < pcode.CPUI_MAX; op++ {
		name := op.String()
		if name != "OpCode(?)" {
			m[name] = op
		}
	}
	return m
}

// Function is a parsed text function: its backing FunctionData and the
// Varnodes named by "output" statements, in file order.
type Function struct {
	FD      *funcdata.FunctionData
	Outputs []pcode.VarnodeID
}

// Parse reads a Function from r. name becomes the FunctionData's name.
func Parse(r io.Reader, name string) (*Function, error) {
	fd := funcdata.New(name)
	vars := make(map[string]pcode.VarnodeID)
	var outputs []pcode.VarnodeID

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "output" {
			if len(fields) != 2 {
				return nil, fmt.Errorf("pcodeasm:%d: output wants exactly one operand", lineNo)
			}
			v, ok := vars[fields[1]]
			if !ok {
				return nil, fmt.Errorf("pcodeasm:%d: output refers to undeclared %s", lineNo, fields[1])
			}
			outputs = append(outputs, v)
			continue
		}

		if len(fields) < 3 {
			return nil, fmt.Errorf("pcodeasm:%d: expected \"v<N> <kind> ...\", got %q", lineNo, line)
		}
		dest := fields[0]
		if _, exists := vars[dest]; exists {
			return nil, fmt.Errorf("pcodeasm:%d: %s redeclared", lineNo, dest)
		}

		switch fields[1] {
		case "input":
			size, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("pcodeasm:%d: bad size %q: %w", lineNo, fields[2], err)
			}
			vars[dest] = fd.NewFree(fd.UniqueSpace(), size)

		case "const":
			if len(fields) != 4 {
				return nil, fmt.Errorf("pcodeasm:%d: const wants size and value", lineNo)
			}
			size, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("pcodeasm:%d: bad size %q: %w", lineNo, fields[2], err)
			}
			val, err := strconv.ParseUint(fields[3], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("pcodeasm:%d: bad value %q: %w", lineNo, fields[3], err)
			}
			vars[dest] = fd.NewConstant(size, val)

		default:
			opName := fields[1]
			op, ok := opByName[opName]
			if !ok {
				return nil, fmt.Errorf("pcodeasm:%d: unknown op-code %q", lineNo, opName)
			}
			operandTokens := fields[2 : len(fields)-1]
			sizeTok := fields[len(fields)-1]
			size, err := strconv.Atoi(sizeTok)
			if err != nil {
				return nil, fmt.Errorf("pcodeasm:%d: bad output size %q: %w", lineNo, sizeTok, err)
			}
			opID := fd.NewOp(len(operandTokens), uint64(lineNo))
			fd.OpSetOpcode(opID, op)
			for i, tok := range operandTokens {
				in, ok := vars[tok]
				if !ok {
					return nil, fmt.Errorf("pcodeasm:%d: operand %s undeclared", lineNo, tok)
				}
				fd.OpSetInput(opID, in, i)
			}
			vars[dest] = fd.NewUniqueOut(size, opID)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pcodeasm: read: %w", err)
	}
	return &Function{FD: fd, Outputs: outputs}, nil
}

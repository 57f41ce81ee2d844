// Released under an MIT license. See LICENSE.

// Ren is an interpreter for a small homoiconic language. Source text is
// read into blocks of values, blocks are bound to the library context,
// and the evaluator walks them one expression at a time.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/renlang/ren/internal/core"
	"github.com/renlang/ren/internal/reader"
	"github.com/renlang/ren/internal/system/options"
	"github.com/renlang/ren/internal/ui"
)

type evaluator struct {
	rt *core.Runtime

	interactive bool
}

// Evaluate binds a block to the library context and runs it, printing
// the result when interactive.
func (e *evaluator) Evaluate(block *core.Cell) {
	rt := e.rt

	rt.Bind(block.Series(), rt.Lib(), true)

	var out core.Cell

	out.Prep()

	sig := rt.Do(block.Series(), block.Index(), nil, &out)
	if sig == core.SigThrown {
		if core.IsFailure(&out) {
			rt.Catch(&out)
			fmt.Fprintf(os.Stderr, "%v\n", rt.HostError(&out))
		} else {
			rt.Catch(&out)
			fmt.Fprintf(os.Stderr, "** uncaught throw: %s\n", rt.Mold(&out))
		}

		return
	}

	if e.interactive && !out.IsVoid() && !out.IsEnd() {
		fmt.Fprintf(os.Stdout, "== %s\n", rt.Mold(&out))
	}
}

func run(e *evaluator, name, src string) int {
	block, err := reader.New(e.rt, name).Read(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ren: %v\n", err)

		return 1
	}

	e.Evaluate(&block)

	return 0
}

func main() {
	options.Parse()

	e := &evaluator{rt: core.NewRuntime()}

	switch {
	case options.Script() != "":
		src, err := os.ReadFile(options.Script())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ren: %v\n", err)
			os.Exit(1)
		}

		os.Exit(run(e, options.Script(), string(src)))

	case options.Command() != "":
		os.Exit(run(e, "command", options.Command()))

	case options.Interactive():
		e.interactive = true

		ui.Run(e.rt, e)

	default:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ren: %v\n", err)
			os.Exit(1)
		}

		os.Exit(run(e, "stdin", string(src)))
	}
}

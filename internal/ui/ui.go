// Released under an MIT license. See LICENSE.

// Package ui provides the interactive command line for ren.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/renlang/ren/internal/core"
	"github.com/renlang/ren/internal/reader"
	"github.com/renlang/ren/internal/system/history"
)

// Evaluator is the interface for things that want to process parsed blocks.
type Evaluator interface {
	Evaluate(block *core.Cell)
}

// Run launches the UI which sends blocks to the Evaluator.
func Run(rt *core.Runtime, e Evaluator) {
	cli := liner.NewLiner()

	defer cli.Close()

	_ = history.Load(func(r io.Reader) (int, error) {
		return cli.ReadHistory(r)
	})

	defer func() {
		_ = history.Save(func(w io.Writer) (int, error) {
			return cli.WriteHistory(w)
		})
	}()

	cli.SetCtrlCAborts(true)

	r := reader.New(rt, "ren")

	prompt := ">> "

	for {
		line, err := cli.Prompt(prompt)

		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted):
			// Abandon any partial input.
			r = reader.New(rt, "ren")
			prompt = ">> "

			continue
		default:
			return
		}

		if line != "" {
			cli.AppendHistory(line)
		}

		block, err := r.Scan(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ren: %v\n", err)

			prompt = ">> "

			continue
		}

		if block == nil {
			// Incomplete; keep accumulating.
			prompt = "   "

			continue
		}

		prompt = ">> "

		e.Evaluate(block)
	}
}

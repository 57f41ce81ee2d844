// Released under an MIT license. See LICENSE.

// Package options parses the ren command line.
package options

import (
	"os"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
)

//nolint:gochecknoglobals
var (
	args        []string
	command     string
	interactive bool
	script      string
	usage       = `ren

Usage:
  ren SCRIPT [ARGUMENTS...]
  ren -c COMMAND [NAME [ARGUMENTS...]]
  ren [-i] [-s [ARGUMENTS...]]
  ren -h
  ren -v

Arguments:
  ARGUMENTS  Positional parameters.
  SCRIPT     Path to ren script. Also used as the value for system/script.
  NAME       Override system/script. Otherwise the name used to invoke ren.

Options:
  -c, --command=COMMAND  Run the specified command.
  -i, --interactive      Invert interactive mode.
  -s, --stdin            Read commands from stdin.
  -h, --help             Display this help.
  -v, --version          Print ren version.

If ren's stdin is a TTY, and ren was invoked with no non-option operands or
ren was explicitly directed to evaluate commands from stdin, interactive
features are enabled. Otherwise, these features are disabled.
`
)

func Args() []string {
	return args
}

func Command() string {
	return command
}

func Interactive() bool {
	return interactive
}

func Parse() {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		// Error in the usage doc. This should never happen.
		panic(err.Error())
	}

	script = ""

	command, _ = opts.String("--command")

	name, _ := opts.String("NAME")
	if name == "" {
		name = os.Args[0]
	}

	path, _ := opts.String("SCRIPT")
	if path != "" {
		name = path
		script = path
	} else if command == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		interactive = true
	}

	args, _ = opts["ARGUMENTS"].([]string)
	args = append([]string{name}, args...)

	invertInteractive, _ := opts.Bool("--interactive")
	interactive = interactive != invertInteractive
}

func Script() string {
	return script
}

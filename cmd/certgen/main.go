package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command line and returns the process exit code.
// Without a command, or when the first argument is a flag, serve is run.
func runMain(args []string, env *Environment) int {
	cmd, rest := "serve", []string(nil)
	if len(args) > 1 {
		if strings.HasPrefix(args[1], "-") && !isCommand(args[1], "--help", "-h", "--version") {
			rest = args[1:]
		} else {
			cmd, rest = args[1], args[2:]
		}
	}

	switch {
	case isCommand(cmd, "serve"):
		ctx, stop := notifyContext(context.Background())
		defer stop()
		return report(env, runServe(ctx, rest, env))

	case isCommand(cmd, "doctor"):
		return runDoctorCmd(rest, env)

	case isCommand(cmd, "version", "--version"):
		fmt.Fprintf(env.Stdout, "certgen %s\n", Version)
		return ExitSuccess

	case isCommand(cmd, "help", "--help", "-h"):
		topic := ""
		if len(rest) > 0 {
			topic = rest[0]
		}
		return runHelp(topic, env)

	default:
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

// isCommand reports whether arg matches one of names.
func isCommand(arg string, names ...string) bool {
	for _, n := range names {
		if arg == n {
			return true
		}
	}
	return false
}

// report prints err and maps it to an exit code.
func report(env *Environment, err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	fmt.Fprintln(env.Stderr, "error:", err)
	return exitCodeFor(err)
}

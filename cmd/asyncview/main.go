package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitTransportError  = 3
	ExitBudgetExhausted = 4
	ExitStorageError    = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "view":
		return runView(cmdArgs)
	case "download":
		return runDownload(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: asyncview <command> [options]

Commands:
  view      Poll a task until it is ready and store the rendered HTML in a bucket
  download  Start a file creation task, wait for it and save the file to a bucket

Configuration is read from .env, the -config YAML file, ASYNCVIEW_* variables
and flags, in that order.

Run 'asyncview <command> -h' for command-specific help.`)
}

package main

import (
	"flag"
	"fmt"
	"os"
)

var optConfigFile *string

func init() {
	optConfigFile = flag.String("conf", "", "Config file to use for this zonesyncd instance")
}

type command struct {
	fn    func()
	usage string
}

var commands = make(map[string]command)

func registerCommand(name string, fn func(), usage string) {
	commands[name] = command{fn: fn, usage: usage}
}

func printUsage() {
	fmt.Println("Usage: zonesyncd <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")

	for name, cmd := range commands {
		fmt.Printf("  %s\n%s\n", name, cmd.usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, ok := commands[os.Args[1]]

	if !ok {
		printUsage()
		os.Exit(1)
	}

	flag.CommandLine.Parse(os.Args[2:])

	cmd.fn()
}

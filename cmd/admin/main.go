// Command admin drives a running server over its loopback admin API and
// inspects the files it leaves under the data directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "state":
		httpCmd("state", "GET", "/admin/v1/state", args)
	case "save":
		httpCmd("save", "POST", "/admin/v1/level/save", args)
	case "load":
		loadCmd(args)
	case "enter":
		httpCmd("enter", "POST", "/admin/v1/combat/enter", args)
	case "exit":
		httpCmd("exit", "POST", "/admin/v1/combat/exit", args)
	case "reset":
		httpCmd("reset", "POST", "/admin/v1/combat/reset", args)
	case "levels":
		levelsCmd(args)
	case "inspect":
		inspectCmd(args)
	case "runs":
		runsCmd(args)
	case "events":
		eventsCmd(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

server (loopback admin API):
  state | save | load [-name file] | enter | exit | reset

offline (data directory):
  levels   list saved levels
  inspect  summarize a level file
  runs     list recorded combat runs from the index
  events   summarize the tick event log`)
}

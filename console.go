package main

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/launix-de/cephosd/server"
	"github.com/launix-de/cephosd/wire"
)

const (
	consolePrompt = "\033[32mosd>\033[0m "
	resultPrefix  = "\033[31m=\033[0m "
)

// Console is a readline-driven operator REPL against a live core,
// generalizing scm/prompt.go's Repl from a Scheme evaluator loop to a
// small set of store inspection commands (stat/list/quit).
func Console(core *server.Core) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            consolePrompt,
		HistoryFile:       ".cephosd-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		keepGoing := func() (cont bool) {
			cont = true
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("console panic:", r, string(debug.Stack()))
				}
			}()
			cont = runConsoleCommand(core, line)
			return
		}()
		if !keepGoing {
			break
		}
	}
}

// runConsoleCommand executes one line of input and returns false when
// the console should exit.
func runConsoleCommand(core *server.Core, line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "quit", "exit":
		return false
	case "list":
		n, _ := core.StoreStats()
		fmt.Printf("%s%d object(s), %d connection(s)\n", resultPrefix, n, core.Registry.Len())
	case "stat":
		if len(fields) < 2 {
			fmt.Println(resultPrefix + "usage: stat <name> [pool] [nspace]")
			return true
		}
		hoid := hoidFromArgs(fields[1:])
		obj, ok := core.LookupObject(hoid)
		if !ok {
			fmt.Println(resultPrefix + "no such object")
			return true
		}
		fmt.Printf("%ssize=%d mtime=%d.%09d blocks=%d\n",
			resultPrefix, obj.Size, obj.Mtime.Sec, obj.Mtime.Nsec, len(obj.Blocks()))
	case "help":
		fmt.Println(resultPrefix + "commands: list, stat <name> [pool] [nspace], quit")
	default:
		fmt.Println(resultPrefix + "unknown command: " + cmd)
	}
	return true
}

func hoidFromArgs(args []string) wire.Hoid {
	hoid := wire.Hoid{Name: args[0]}
	if len(args) > 1 {
		if pool, err := strconv.ParseInt(args[1], 10, 64); err == nil {
			hoid.Pool = pool
		}
	}
	if len(args) > 2 {
		hoid.Nspace = args[2]
	}
	return hoid
}

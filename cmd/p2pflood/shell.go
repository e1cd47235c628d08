package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/tkavi/p2pflood/internal/peer"

	prompt "github.com/c-bata/go-prompt"
)

// runShell starts the interactive operator console: a go-prompt REPL
// exposing the running peer's status, neighbors, and per-file search
// commands.
func runShell(p *peer.Peer) {
	fmt.Println("p2pflood interactive shell. Type 'help' for commands.")
	prompt.New(
		func(in string) { shellExecutor(in, p) },
		shellCompleter,
		prompt.OptionPrefix("p2pflood> "),
		prompt.OptionTitle("p2pflood"),
	).Run()
}

func shellExecutor(in string, p *peer.Peer) {
	in = strings.TrimSpace(in)
	fields := strings.Fields(in)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "exit", "quit":
		fmt.Println("stopping peer...")
		os.Exit(0)
	case "status":
		fmt.Println(p.Status())
	case "peers":
		neighbors := p.Neighbors()
		fmt.Printf("%d neighbor(s):\n", len(neighbors))
		for _, n := range neighbors {
			fmt.Printf("  %s\n", n)
		}
	case "search":
		if len(fields) < 2 {
			fmt.Println("usage: search <file>")
			return
		}
		p.Search(fields[1])
		fmt.Printf("search for %s complete (chunks continue to arrive in the background)\n", fields[1])
	case "chunks":
		if len(fields) < 2 {
			fmt.Println("usage: chunks <file>")
			return
		}
		chunks := p.Chunks(fields[1])
		fmt.Printf("%s: %d chunk(s) present: %v\n", fields[1], len(chunks), chunks)
	case "help":
		fmt.Println("Available commands:")
		fmt.Println("  status          - show this peer's identity and neighbor count")
		fmt.Println("  peers           - list this peer's static neighbor endpoints")
		fmt.Println("  search <file>   - (re)issue a search for <file>")
		fmt.Println("  chunks <file>   - list locally held chunk indices for <file>")
		fmt.Println("  exit            - stop the peer and leave the shell")
	default:
		fmt.Println("unknown command: " + fields[0])
	}
}

func shellCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "status", Description: "Show peer status"},
		{Text: "peers", Description: "List neighbor endpoints"},
		{Text: "search", Description: "Search for a file"},
		{Text: "chunks", Description: "List local chunks for a file"},
		{Text: "help", Description: "Show help"},
		{Text: "exit", Description: "Exit the shell"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

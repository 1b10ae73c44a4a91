package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"neuro/internal/router"
)

// runREPL drives a simple scanner-based loop against r until stdin closes
// or the user types exit/quit, grounded on the teacher's no-readline
// fallback mode.
func runREPL(ctx context.Context, r *router.Router) {
	fmt.Println("neuro - local coding assistant")
	fmt.Println("Type your request and press Enter. Type 'exit' or 'quit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			}
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("goodbye")
			return
		}
		if input == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		result := r.Route(ctx, input)
		fmt.Printf("\n%s\n\n", result)
	}
}

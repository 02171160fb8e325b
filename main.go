// Package main provides the entry point for procsim.
// procsim is a cycle-accurate, trace-driven out-of-order pipeline simulator.
//
// For the full CLI, use: go run ./cmd/procsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("procsim - Out-of-Order Pipeline Simulator")
	fmt.Println("Tomasulo scheduling with a reorder buffer and GShare prediction")
	fmt.Println("")
	fmt.Println("Usage: procsim -r R -f F -j J -k K -l L -i <trace file>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  go run ./cmd/procsim    Simulate one configuration")
	fmt.Println("  go run ./cmd/procopt    Sweep configurations for a cheapest near-optimal one")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/procsim' instead.")
	}
}

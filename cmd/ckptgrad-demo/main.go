// Command ckptgrad-demo exercises the checkpointed autodiff engine end to
// end: build a small graph, checkpoint part of it, evict the rest, run
// backward, and print the result.
package main

import (
	"context"
	"log"
	"os"

	"github.com/ckptgrad/ckptgrad/cmd/cli"
)

func main() {
	ctx := context.Background()

	registry := cli.NewRegistry()
	registry.Register(runCommand{})

	if err := registry.Run(ctx, os.Args[1:]); err != nil {
		log.Printf("ckptgrad-demo: %v", err)
		os.Exit(1)
	}
}

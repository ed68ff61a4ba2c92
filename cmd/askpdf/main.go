// Command askpdf is the entry point for the askpdf document question
// answering tool. It provides a CLI (via Cobra) for ingesting documents and
// asking questions, and an HTTP server for the same operations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/askpdf-go/cmd/askpdf/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

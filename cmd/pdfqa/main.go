// Command pdfqa answers questions about a PDF. It indexes the document's
// text in a local vector index and asks a language model to answer from the
// most relevant passages, either once (ask), interactively (chat) or over
// HTTP (serve).
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/54b3r/pdfqa-go/cmd/pdfqa/commands"
)

func main() {
	// .env is optional; variables already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env: %v\n", err)
	}

	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", commands.UserMessage(err))
		os.Exit(1)
	}
}

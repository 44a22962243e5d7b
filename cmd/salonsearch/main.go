// salonsearch indexes and searches a personal blog's articles, mixing
// full-text and semantic retrieval over Chinese and English content.
package main

import (
	"fmt"
	"os"

	"github.com/lanting/salonsearch/cmd/salonsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command jdecomp decompiles Java class files with an external decompiler.
package main

import (
	"os"

	"github.com/Iron-Ham/jdecomp/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

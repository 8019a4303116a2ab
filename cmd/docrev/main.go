// Command docrev is the operator CLI: offline extraction and comparison of
// marked-up drawings, revision chain management and schema migrations.
package main

import (
	"os"

	"github.com/turtacn/DocRev-Intelligence/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(openBackend); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending

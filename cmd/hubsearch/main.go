// Command hubsearch syncs the hub's sources into the search cluster and
// answers federated queries.
package main

import (
	"os"

	"github.com/custodia-labs/hubsearch/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

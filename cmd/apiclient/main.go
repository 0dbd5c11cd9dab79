// Command apiclient sends authenticated requests to REST APIs.
package main

import (
	"os"

	"github.com/erraggy/apiclient/cmd/apiclient/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cmd/tools/kmctl/main.go
package main

import (
	"os"

	"kredmitra/cmd/tools/kmctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

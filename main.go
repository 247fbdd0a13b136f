// The main package for the harvest executable.
package main

import (
	"github.com/marketlens/harvest/cmd"
)

func main() {
	cmd.Execute()
}

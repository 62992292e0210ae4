// The main package for the collector-worker executable.
package main

import (
	"github.com/intelforge/collector-worker/cmd"
)

func main() {
	cmd.Execute()
}

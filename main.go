// The main package for the boardpulse executable.
package main

import (
	"github.com/boardkit/boardpulse/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}

// ./main.go
package main

import (
	"github.com/xkilldash9x/codevolver/cmd"
)

// main is the entry point for the CodeEvolver CLI.
func main() {
	cmd.Execute()
}

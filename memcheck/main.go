// Package main is the entry point of the memcheck command.
package main

import "github.com/sarchlab/memcheck/memcheck/cmd"

func main() {
	cmd.Execute()
}

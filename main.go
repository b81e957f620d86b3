// Package main is the entry point for the mewt CLI.
package main

import "mewt.dev/pkg/mewt/cmd"

func main() {
	cmd.Execute()
}

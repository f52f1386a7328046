package main

import "github.com/PhelGc/roadsphere/internal/cli"

func main() {
	cli.Execute()
}

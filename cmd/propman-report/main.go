package main

import "propman/internal/cli"

func main() {
	cli.LoadEnvFile()
	Execute()
}

package main

import "xpkg/internal/cli"

func main() {
	cli.Execute()
}

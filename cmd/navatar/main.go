package main

import "github.com/region23/navatar/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/quentin-drucker/snaphunt/internal/cli"

func main() {
	cli.Execute()
}

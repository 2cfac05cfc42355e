package main

import "github.com/erp/flattax/internal/cli"

func main() {
	cli.Execute()
}

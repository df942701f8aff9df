package main

import "github.com/duongtq/conveyor/internal/cli"

func main() {
	cli.Execute()
}

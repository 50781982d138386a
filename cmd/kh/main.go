package main

import "github.com/kh-lang/kh/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/tanksentry/tanksentry/internal/cli"

func main() {
	cli.Execute()
}

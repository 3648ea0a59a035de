package main

import "laview-dl/internal/cli"

func main() {
	cli.Execute()
}

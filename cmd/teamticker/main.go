package main

import "teamticker/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/vedran77/relaychat/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/mawngo/wellsite/cmd"

func main() {
	cmd.NewCLI().Execute()
}

package main

import "github.com/sandwichlabs/mcpc/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/nandhiniannika/online-voting/cmd"

func main() {
	cmd.Execute()
}

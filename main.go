package main

import "llmperfbench/cmd"

func main() {
	cmd.Execute()
}

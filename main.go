package main

import "github.com/preligens-lab/buzzard/cmd"

func main() {
	cmd.Execute()
}

package main

import "wavebench/cmd"

func main() {
	cmd.Execute()
}

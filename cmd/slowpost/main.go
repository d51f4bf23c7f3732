package main

import "github.com/slowpost/slowpost/cmd/slowpost/cmd"

func main() {
	cmd.Execute()
}

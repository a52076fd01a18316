package main

import "github.com/KaramelBytes/pivotloom-cli/cmd"

func main() {
	cmd.Execute()
}

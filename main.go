package main

import "github.com/drgolem/loopah/cmd"

func main() {
	cmd.Execute()
}

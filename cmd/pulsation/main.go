package main

import "github.com/searchktools/pulsation/cmd/pulsation/cmd"

func main() {
	cmd.Execute()
}

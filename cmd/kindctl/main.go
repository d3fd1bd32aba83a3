package main

import "github.com/Dannaccb/be-kind/cmd/kindctl/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Dannaccb/be-kind/cmd/kindadmin/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Record-Gate/Recordgate/cmd/record-gate/cmd"

func main() {
	cmd.Execute()
}

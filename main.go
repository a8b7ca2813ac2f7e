package main

import "github.com/schemacanvas/schemacanvas/cmd"

func main() {
	cmd.Execute()
}

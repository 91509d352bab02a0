package main

import "github.com/relloyd/pgmirror/cmd"

func main() {
	cmd.Execute()
}

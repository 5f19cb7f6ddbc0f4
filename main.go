package main

import "github.com/okvist/sessync/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/iksnae/tchat/cmd"

func main() {
	cmd.Execute()
}

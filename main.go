package main

import "github.com/forensicsoft/go-fvde-core/cmd"

func main() {
	cmd.Execute()
}

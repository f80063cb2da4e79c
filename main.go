package main

import "github.com/lungscan/apiserver/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/flux-p2p/flux/cmd"

func main() {
	cmd.Execute()
}

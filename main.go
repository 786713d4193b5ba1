package main

import "github.com/jfmyers9/riffnet/cmd"

func main() {
	cmd.Execute()
}

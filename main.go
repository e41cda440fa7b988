package main

import "github.com/jfmyers9/scrobbled/cmd"

func main() {
	cmd.Execute()
}

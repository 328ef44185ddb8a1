package main

import "github.com/jfmyers9/trackpresence/cmd"

func main() {
	cmd.Execute()
}

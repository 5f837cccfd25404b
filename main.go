package main

import "github.com/mempirate/trawl/cmd"

func main() {
	cmd.Execute()
}

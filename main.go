package main

import "github.com/encodeous/routingd/cmd"

func main() {
	cmd.Execute()
}

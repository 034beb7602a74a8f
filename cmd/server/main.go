package main

import "github.com/Togather-Foundation/confdir/cmd/server/cmd"

func main() {
	cmd.Execute()
}

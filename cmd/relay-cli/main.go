package main

import "relay-core/cmd/relay-cli/cmd"

func main() {
	cmd.Execute()
}

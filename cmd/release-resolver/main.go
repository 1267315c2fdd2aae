package main

import "github.com/oshokin/release-resolver/cmd/release-resolver/cmd"

func main() {
	cmd.Execute()
}

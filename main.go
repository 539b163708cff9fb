package main

import "github.com/KaramelBytes/pondstat-cli/cmd"

func main() {
	cmd.Execute()
}

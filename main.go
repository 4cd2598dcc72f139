package main

import "github.com/KaramelBytes/docfx-topics/cmd"

func main() {
	cmd.Execute()
}

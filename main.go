package main

import "github.com/zaytsevrv/jarvis-assistant/cmd"

func main() {
	cmd.Execute()
}

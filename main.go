package main

import "github.com/devbuddy-ai/devbuddy/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Davincible/chat-bridge/cmd"

func main() {
	cmd.Execute()
}

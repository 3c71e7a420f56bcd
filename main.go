package main

import "github.com/AzielCF/chatbot-platform/cmd"

func main() {
	cmd.Execute()
}

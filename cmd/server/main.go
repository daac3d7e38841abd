package main

import "github.com/calcula-ai/price-bot/cmd"

func main() {
	cmd.Execute()
}

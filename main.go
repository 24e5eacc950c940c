package main

import "github.com/jmehdipour/prompt-vault/cmd"

func main() {
	cmd.Execute()
}

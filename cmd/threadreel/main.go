package main

import "github.com/forPelevin/threadreel/internal/cli"

func main() {
	cli.Main()
}

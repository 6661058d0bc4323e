package main

import "orgops/internal/cmd"

func main() {
	cmd.Execute()
}

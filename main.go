package main

import (
	cmd "github.com/cozy-creator/brandgen/cmd/brandgen"
)

func main() {
	cmd.Execute()
}

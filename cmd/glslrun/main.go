package main

import (
	"os"

	"glslang-runner/cmd/glslrun/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

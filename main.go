package main

import (
	"github.com/tebeka/atexit"

	"github.com/chromlab/nucleosim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}

package main

import (
	"os"

	"github.com/sokinpui/upatch"
)

func main() {
	os.Exit(upatch.Execute())
}

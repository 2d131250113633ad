package main

import (
	"github.com/opendraw/opendraw-sync/cmd"
)

func main() {
	cmd.Execute()
}

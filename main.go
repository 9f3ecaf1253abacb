package main

import (
	"github.com/clam-project/clam-lease/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/xkilldash9x/hnpscan-cli/cmd"
)

func main() {
	cmd.Execute()
}

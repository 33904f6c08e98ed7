package main

import (
	"github.com/fundingbot/grantscope/cmd"
)

func main() {
	cmd.Execute()
}

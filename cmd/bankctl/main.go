package main

import "github.com/warp/ledger-engine/cmd/bankctl/cmd"

func main() {
	cmd.Execute()
}

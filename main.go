package main

import "github.com/frahmantamala/pocket-ledger/cmd"

func main() {
	cmd.Execute()
}

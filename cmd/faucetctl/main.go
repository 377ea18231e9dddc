// Command faucetctl inspects and administers a faucet backed by a bbolt file.
package main

import "github.com/xraph/faucet/cmd/faucetctl/cmd"

func main() {
	cmd.Execute()
}

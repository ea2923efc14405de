// This program is the command line wallet client for the ledger service.
package main

import "github.com/dinarlabs/ledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}

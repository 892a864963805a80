// Command nfnd runs a single NDN forwarding node with Named Function
// Networking support, wired per the config file given as its argument.
package main

import (
	"os"

	"github.com/usi-icn/nfnd/cmd"
)

func main() {
	if err := cmd.CmdNfnd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command haruchi syncs completed tasks into XP ledger entries and serves
// the game summary API.
package main

import "github.com/haruchi-os/haruchi-sync/internal/cli"

func main() {
	cli.Execute()
}

// Command realmctl is a command-line client for the realmkeeper API
package main

import "github.com/mcoot/realmkeeper/internal/cli"

func main() {
	cli.Execute()
}

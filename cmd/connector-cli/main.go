package main

import (
	"poitiers-connector/cmd/connector-cli/commands"
	"poitiers-connector/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	commands.ExecuteContext(ctx)
}

package main

import (
	"relay-core/cmd/relay-server/cmd"
)

// @title Relay Core API
// @version 1.0
// @description Delegated signing relay: session keys, app balances, threshold-signed EVM transactions

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}

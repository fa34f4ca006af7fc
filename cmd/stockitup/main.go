package main

import (
	"fmt"
	"os"

	"github.com/stockitup/backend/internal/cli"
)

//	@title			Stock It Up API
//	@version		1.0
//	@description	Multi-channel e-commerce backend: products, orders, marketplace connections and analytics.

//	@host		localhost:8000
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /accounts/token/. Format: "Bearer {token}"

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

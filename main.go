/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
// @title           AgriVision Provenance API
// @version         1.0
// @description     Herb sample provenance API server: collection, AI triage, QC review, appeal, batch assembly
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT issued by the upstream auth layer
package main

import "github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/cmd"

func main() {
	cmd.Execute()
}

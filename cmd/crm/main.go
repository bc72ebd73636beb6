package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sivaangayarkanni/crm/internal/cli"
	"github.com/sivaangayarkanni/crm/internal/config"
	"github.com/sivaangayarkanni/crm/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init(os.Getenv(config.EnvPrefix + "_ENV"))

	code := cli.Execute(context.Background())
	logger.Sync()
	os.Exit(code)
}

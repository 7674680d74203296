package main

import (
	"blok-sync/cmd"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional, real environment variables take precedence.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		log.Fatalf("could not start application: %v", err)
	}
}

package main

import (
	"github.com/joho/godotenv"

	"github.com/ragline/ragline/internal/cli"
)

func main() {
	// Optional: variables referenced by the config's ${VAR} placeholders.
	_ = godotenv.Load()

	cli.Execute()
}

package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var load sync.Once

// Config returns the value of an environment variable, loading .env once.
func Config(key string) string {
	load.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}
	})
	return os.Getenv(key)
}

package utils

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file from the working directory if one exists.
// Variables already present in the environment win.
func LoadEnv() {
	godotenv.Load()
}

// Getenv returns the trimmed value of key, or def when it is unset or blank.
func Getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

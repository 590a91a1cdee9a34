package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env files in order of precedence.
//
// Process environment wins over files. godotenv.Load never overwrites a set
// variable, so files are read from most specific (.env.local) to least (.env).
// An explicit file overrides everything.
func loadEnvFiles(explicit string) error {
	if explicit != "" {
		if err := godotenv.Overload(explicit); err != nil {
			return fmt.Errorf("failed to load %s: %w", explicit, err)
		}
	}

	if IsLambda() {
		return nil
	}

	files := []string{".env.local"}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		files = append(files, fmt.Sprintf(".env.%s", env))
	}
	files = append(files, ".env")

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return nil
}

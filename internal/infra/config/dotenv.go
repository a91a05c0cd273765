package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotenv loads environment variables from the given file before Parse
// runs, without overriding variables already set in the environment.
// A missing file is not an error; it just means everything comes from the
// real environment.
func LoadDotenv(filename string) error {
	if err := godotenv.Load(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("load %s: %w", filename, err)
	}

	return nil
}

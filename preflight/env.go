package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv returns the variables the project's settings would see: the contents
// of envFile overlaid by the process environment. Like the settings' dotenv
// loader, values already set in the process win. A missing envFile is not an error.
// envFile is read as given; parent directories are not searched.
func LoadEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			env = fileEnv
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}

	return env, nil
}

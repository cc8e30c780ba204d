package templates

import (
	"fmt"
	"os"
	"strings"
)

const configTemplate = `# brandgen configuration. Every key can be overridden with a BRANDGEN_
# environment variable, e.g. BRANDGEN_DB_DSN or BRANDGEN_GENERATOR_BACKEND.
environment: dev
host: localhost
port: 8080
public_dir: ""

db:
  driver: sqlite
  dsn: "file:{{home}}/brandgen.db?cache=shared"

generator:
  backend: mock
  topic: brandgen/generations/requests
  workers: 2

training:
  mode: async
  workers: 1
  step_interval: 50ms
  storage_domain: brandgen.dev

filesystem_type: local

rate_limit:
  enabled: false
  requests_per_second: 5
  burst: 10

auth:
  required: false

tracing:
  enabled: false
`

const envTemplate = `# Provider credentials. These use their conventional names, without the
# BRANDGEN_ prefix.
# HF_TOKEN=
# FIREWORKS_API_KEY=
# REPLICATE_API_TOKEN=
# OPENAI_API_KEY=
`

// WriteConfig writes the default config.yaml for a home directory.
func WriteConfig(path, home string) error {
	return writeFile(path, strings.ReplaceAll(configTemplate, "{{home}}", home))
}

// WriteEnv writes a commented .env skeleton.
func WriteEnv(path string) error {
	return writeFile(path, envTemplate)
}

func writeFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

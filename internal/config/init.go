package config

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

const exampleConfig = `# sitebuilder host configuration.
# Directory layout, passthrough copies and watch targets are declared in code.
root: .
clean: true
manifest: .sitebuilder/manifest.yaml

logging:
  level: ${SITEBUILDER_LOG_LEVEL}
  format: text

watch:
  debounce: 300ms
  resync_interval: 0s
  retry:
    backoff: linear
    initial: 200ms
    max: 2s
    max_retries: 2

metrics:
  listen: ""

relink:
  extra_roots: []
`

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.NewError(errors.CategoryValidation, "configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buildforever/farmctl/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig writes the config to a YAML file with a descriptive header.
// An existing file is only replaced after confirmation.
func WriteConfig(cfg *config.Config, outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		ok, err := confirmOverwrite(outputPath)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s already exists, not overwritten", outputPath)
		}
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(outputPath))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	// Secrets live in this file; keep it private.
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func generateHeader(outputPath string) string {
	return fmt.Sprintf(`# farmctl deployment configuration
# Generated by farmctl init on %s
#
# Edit agent entries to pin ISOs (selected_iso) or static addresses
# (static_ip/gateway), then run: farmctl deploy -c %s
`, time.Now().Format("2006-01-02"), outputPath)
}

func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("%s already exists. Overwrite? [y/N]: ", path)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

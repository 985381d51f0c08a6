package handlers

import (
	"fmt"
	"os"
)

// SaveConfig stores the configuration file under a name for later reuse.
// The file is validated before saving; a broken config is not worth keeping.
func SaveConfig(name, configPath string) error {
	path, err := findConfigFile(configPath)
	if err != nil {
		return err
	}
	if _, err := loadConfigFile(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	if err := s.SaveConfig(name, string(data)); err != nil {
		return err
	}
	fmt.Printf("Saved %s as %q\n", path, name)
	return nil
}

// ListConfigs prints all saved configurations.
func ListConfigs() error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	configs, err := s.ListConfigs()
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("No saved configurations.")
		return nil
	}
	for _, cfg := range configs {
		fmt.Printf("%-20s updated %s\n", cfg.Name, cfg.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// ShowConfig prints a saved configuration's YAML.
func ShowConfig(name string) error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	cfg, err := s.GetConfig(name)
	if err != nil {
		return err
	}
	fmt.Print(cfg.YAML)
	return nil
}

// DeleteConfig removes a saved configuration.
func DeleteConfig(name string) error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	if err := s.DeleteConfig(name); err != nil {
		return err
	}
	fmt.Printf("Deleted %q\n", name)
	return nil
}

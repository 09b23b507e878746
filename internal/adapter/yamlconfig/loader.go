package yamlconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"bytemomo/moray/internal/config"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads a YAML run profile on top of base. Environment variables
// in the file are expanded, and relative list paths are resolved against the
// profile's directory.
func LoadProfile(path string, base config.Config) (config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read profile: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse profile %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Hostlist = resolvePath(dir, cfg.Hostlist)
	cfg.Wordlist = resolvePath(dir, cfg.Wordlist)
	cfg.LogFile = resolvePath(dir, cfg.LogFile)
	return cfg, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

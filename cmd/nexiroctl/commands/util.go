package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"nexiro/internal/domain/jsoncfg"
)

// loadRequest loads an enhance request from a YAML or JSON file. Image
// paths are resolved relative to the request file.
func loadRequest(path string) (jsoncfg.EnhanceJSON, error) {
	var req jsoncfg.EnhanceJSON
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	base := filepath.Dir(path)
	for _, img := range []*jsoncfg.ImageJSON{&req.Source, req.Style.Image, req.Options.CustomBackground} {
		if err := inlineImage(base, img); err != nil {
			return req, err
		}
	}
	return req, nil
}

func inlineImage(base string, img *jsoncfg.ImageJSON) error {
	if img == nil || img.Path == "" || img.Data != "" {
		return nil
	}
	path := img.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", img.Path, err)
	}
	img.Data = base64.StdEncoding.EncodeToString(data)
	return nil
}

func requireInputFile() error {
	if inputFile == "" {
		return fmt.Errorf("input file is required, use -f flag")
	}
	return nil
}

func saveToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

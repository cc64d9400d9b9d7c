package cmd

import (
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v4"
)

func (report *BenchmarkReport) Json() (string, error) {
	prettyJSON, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	return string(prettyJSON), nil
}

func (report *BenchmarkReport) Yaml() (string, error) {
	yamlData, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("error marshalling yaml: %w", err)
	}

	return string(yamlData), nil
}

// Format renders the report as json or yaml.
func (report *BenchmarkReport) Format(format string) (string, error) {
	switch format {
	case "json":
		return report.Json()
	case "yaml":
		return report.Yaml()
	default:
		return "", fmt.Errorf("invalid format %q (want json or yaml)", format)
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// VCAPService represents a Cloud Foundry service binding
type VCAPService struct {
	InstanceGUID string                 `json:"instance_guid"`
	InstanceName string                 `json:"instance_name"`
	Name         string                 `json:"name"`
	Plan         string                 `json:"plan"`
	Credentials  map[string]interface{} `json:"credentials"`
	Tags         []string               `json:"tags"`
	Label        string                 `json:"label"`
}

// VCAPServices represents the part of VCAP_SERVICES we consume
type VCAPServices struct {
	GenAI []VCAPService `json:"genai"`
}

// ServiceBinding is a completion endpoint discovered from a service binding.
type ServiceBinding struct {
	Name    string
	Plan    string
	BaseURL string
	APIKey  string
	// Model is empty for multi-model plans; the model is then discovered
	// from the service's model list.
	Model string
}

// DiscoverBindings parses a VCAP_SERVICES document. Bindings without
// credentials or without a base URL are skipped.
func DiscoverBindings(vcap string) ([]ServiceBinding, error) {
	var services VCAPServices
	if err := json.Unmarshal([]byte(vcap), &services); err != nil {
		return nil, fmt.Errorf("failed to parse VCAP_SERVICES: %w", err)
	}

	var bindings []ServiceBinding
	for _, service := range services.GenAI {
		if service.Credentials == nil {
			continue
		}

		name := service.InstanceName
		if name == "" {
			name = service.Name
		}
		binding := ServiceBinding{Name: name, Plan: service.Plan}

		if endpoint, ok := service.Credentials["endpoint"].(map[string]interface{}); ok {
			// Current plans nest the connection details under "endpoint"; a
			// top-level api_base still wins for single-model plans.
			binding.APIKey, _ = endpoint["api_key"].(string)
			binding.BaseURL, _ = endpoint["api_base"].(string)
			if apiBase, ok := service.Credentials["api_base"].(string); ok && apiBase != "" {
				binding.BaseURL = apiBase
			}
		} else {
			binding.APIKey, _ = service.Credentials["api_key"].(string)
			if apiBase, ok := service.Credentials["api_base"].(string); ok {
				binding.BaseURL = apiBase
			} else if baseURL, ok := service.Credentials["base_url"].(string); ok {
				binding.BaseURL = baseURL
			}
		}
		binding.Model, _ = service.Credentials["model_name"].(string)

		if binding.BaseURL == "" {
			continue
		}
		binding.BaseURL = proxyBaseURL(binding.BaseURL)
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// ApplyBindings fills an empty base URL (and an empty API key or model) from
// the first bound AI service, if VCAP_SERVICES is set.
func (c *Config) ApplyBindings() error {
	if c.BaseURL != "" {
		return nil
	}
	vcap := os.Getenv("VCAP_SERVICES")
	if vcap == "" {
		return nil
	}

	bindings, err := DiscoverBindings(vcap)
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return nil
	}

	b := bindings[0]
	c.BaseURL = b.BaseURL
	if c.APIKey == "" {
		c.APIKey = b.APIKey
	}
	if c.Model == "" {
		c.Model = b.Model
	}
	return nil
}

// proxyBaseURL appends the OpenAI path the GenAI proxy expects when a
// binding hands out the bare proxy address: /v1 for single-model plans,
// /openai/v1 for multi-model (tanzu-) plans.
func proxyBaseURL(baseURL string) string {
	if !strings.Contains(baseURL, "genai-proxy") || strings.Contains(baseURL, "/v1") {
		return baseURL
	}
	trimmed := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasSuffix(trimmed, "/openai"):
		return trimmed + "/v1"
	case strings.Contains(trimmed, "tanzu-"):
		return trimmed + "/openai/v1"
	}
	return baseURL
}

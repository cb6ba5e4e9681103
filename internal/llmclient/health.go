package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthStatus reports upstream reachability and whether the configured
// generation model is pulled.
type HealthStatus struct {
	Connected       bool     `json:"ollama_connected"`
	ModelAvailable  bool     `json:"model_available"`
	ModelConfigured string   `json:"model_configured"`
	Models          []string `json:"models"`
	Error           string   `json:"error,omitempty"`
}

// Probe checks the Ollama tags endpoint for reachability and model
// presence. It never returns an error; failures are encoded in the status.
func Probe(ctx context.Context, baseURL, model string) HealthStatus {
	status := HealthStatus{ModelConfigured: model}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		status.Error = "no se pudo conectar con Ollama"
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("Ollama respondió con código %d", resp.StatusCode)
		return status
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		status.Error = err.Error()
		return status
	}

	status.Connected = true
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
		if strings.Contains(m.Name, model) {
			status.ModelAvailable = true
		}
	}
	return status
}

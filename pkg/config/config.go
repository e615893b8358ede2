package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App      AppConfig                `json:"app"`
	Ollama   OllamaConfig             `json:"ollama"`
	Gateways map[string]GatewayConfig `json:"gateways"`
	Memory   MemoryConfig             `json:"memory"`
	Policy   PolicyConfig             `json:"policy"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

type OllamaConfig struct {
	Host           string `json:"host"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Retries        int    `json:"retries"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	MaxHistory int    `json:"max_history"`
	AuditPath  string `json:"audit_path"`
}

type PolicyConfig struct {
	Path string `json:"path"`
}

// LoadConfig reads the JSON config file, falling back to defaults when the
// file does not exist. ASTRA_OLLAMA_HOST and ASTRA_OLLAMA_MODEL override
// the reasoning-service settings from the environment.
func LoadConfig(path string) *Config {
	cfg := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to open config file: %v", err)
		}
		log.Printf("config file %s not found, using defaults", path)
	} else {
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			log.Fatalf("failed to decode config file: %v", err)
		}
	}

	if host := os.Getenv("ASTRA_OLLAMA_HOST"); host != "" {
		cfg.Ollama.Host = host
	}
	if model := os.Getenv("ASTRA_OLLAMA_MODEL"); model != "" {
		cfg.Ollama.Model = model
	}

	return cfg
}

func defaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		App: AppConfig{
			Name:      "Astra",
			Workspace: home,
		},
		Ollama: OllamaConfig{
			Host:           "http://localhost:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 30,
			Retries:        2,
		},
		Gateways: map[string]GatewayConfig{},
		Memory: MemoryConfig{
			MaxHistory: 10,
			AuditPath:  "data/audit.db",
		},
	}
}

// GetGateway returns the named gateway config if enabled.
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	gw, ok := c.Gateways[name]
	if ok && gw.Enabled && gw.Token != "" {
		return gw, true
	}
	return GatewayConfig{}, false
}

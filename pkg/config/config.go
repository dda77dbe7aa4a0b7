package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

type GatewayConfig struct {
	Host string `json:"host" env:"GOLIX_GATEWAY_HOST"`
	Port int    `json:"port" env:"GOLIX_GATEWAY_PORT"`
}

type LLMConfig struct {
	// Provider selects the completion backend: "openai" or "anthropic".
	Provider              string `json:"provider" env:"GOLIX_LLM_PROVIDER"`
	Model                 string `json:"model" env:"GOLIX_LLM_MODEL"`
	APIKey                string `json:"api_key" env:"GOLIX_LLM_API_KEY"`
	BaseURL               string `json:"base_url" env:"GOLIX_LLM_BASE_URL"`
	Proxy                 string `json:"proxy" env:"GOLIX_LLM_PROXY"`
	SystemPrompt          string `json:"system_prompt" env:"GOLIX_LLM_SYSTEM_PROMPT"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" env:"GOLIX_LLM_REQUEST_TIMEOUT_SECONDS"`
}

type RelayConfig struct {
	// PeerURL is the base URL of a second bridge instance. When set,
	// messages relayed from the assistant are re-POSTed to the peer's
	// /send-command endpoint.
	PeerURL        string `json:"peer_url" env:"GOLIX_RELAY_PEER_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"GOLIX_RELAY_TIMEOUT_SECONDS"`
}

type CommandStoreConfig struct {
	// DatabaseURL is the Firebase Realtime Database base URL. Empty
	// disables the store.
	DatabaseURL string `json:"database_url" env:"GOLIX_STORE_DATABASE_URL"`
	Secret      string `json:"secret" env:"GOLIX_STORE_SECRET"`
}

type GitHubConfig struct {
	Token    string `json:"token" env:"GOLIX_GITHUB_TOKEN"`
	Repo     string `json:"repo" env:"GOLIX_GITHUB_REPO"` // "owner/name"
	Branch   string `json:"branch" env:"GOLIX_GITHUB_BRANCH"`
	FilePath string `json:"file_path" env:"GOLIX_GITHUB_FILE_PATH"`
}

type RenderConfig struct {
	APIKey    string `json:"api_key" env:"GOLIX_RENDER_API_KEY"`
	ServiceID string `json:"service_id" env:"GOLIX_RENDER_SERVICE_ID"`
}

type AutoUpdateConfig struct {
	Enabled bool         `json:"enabled" env:"GOLIX_AUTO_UPDATE_ENABLED"`
	GitHub  GitHubConfig `json:"github"`
	Render  RenderConfig `json:"render"`
}

type MarketConfig struct {
	// CoinGeckoAPIKey enables the third price fallback. Binance and
	// Coinpaprika need no credentials.
	CoinGeckoAPIKey string `json:"coingecko_api_key" env:"GOLIX_MARKET_COINGECKO_API_KEY"`
}

type SearchConfig struct {
	BraveAPIKey string `json:"brave_api_key" env:"GOLIX_SEARCH_BRAVE_API_KEY"`
	MaxResults  int    `json:"max_results" env:"GOLIX_SEARCH_MAX_RESULTS"`
}

type NewsConfig struct {
	Feeds    []string `json:"feeds" env:"GOLIX_NEWS_FEEDS"`
	MaxItems int      `json:"max_items" env:"GOLIX_NEWS_MAX_ITEMS"`
}

type RateLimitsConfig struct {
	Enabled           bool `json:"enabled" env:"GOLIX_RATE_LIMITS_ENABLED"`
	RequestsPerMinute int  `json:"requests_per_minute" env:"GOLIX_RATE_LIMITS_REQUESTS_PER_MINUTE"`
}

type Config struct {
	Gateway      GatewayConfig      `json:"gateway"`
	LLM          LLMConfig          `json:"llm"`
	Relay        RelayConfig        `json:"relay"`
	CommandStore CommandStoreConfig `json:"command_store"`
	AutoUpdate   AutoUpdateConfig   `json:"auto_update"`
	Market       MarketConfig       `json:"market"`
	Search       SearchConfig       `json:"search"`
	News         NewsConfig         `json:"news"`
	RateLimits   RateLimitsConfig   `json:"rate_limits"`
	mu           sync.RWMutex
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		LLM: LLMConfig{
			Provider:              "openai",
			Model:                 "gpt-4o-mini",
			BaseURL:               "https://api.openai.com/v1",
			SystemPrompt:          "Réponds brièvement et clairement.",
			RequestTimeoutSeconds: 60,
		},
		Relay: RelayConfig{
			TimeoutSeconds: 15,
		},
		AutoUpdate: AutoUpdateConfig{
			Enabled: false,
			GitHub: GitHubConfig{
				Branch:   "main",
				FilePath: "main.py",
			},
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		News: NewsConfig{
			Feeds: []string{
				"https://www.coindesk.com/arc/outboundfeeds/rss/",
				"https://www.theblock.co/rss.xml",
				"https://cryptopotato.com/feed/",
				"https://cointelegraph.com/rss",
				"https://www.reuters.com/markets/cryptocurrency/rss",
			},
			MaxItems: 6,
		},
		RateLimits: RateLimitsConfig{
			Enabled:           false,
			RequestsPerMinute: 60,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks the credentials each enabled flow needs. A missing
// mandatory credential is a startup failure: the caller must not start
// serving.
func (c *Config) Validate() error {
	var missing []string

	if c.LLM.Provider != "" && c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}

	if c.AutoUpdate.Enabled {
		if c.AutoUpdate.GitHub.Token == "" {
			missing = append(missing, "auto_update.github.token")
		}
		if c.AutoUpdate.GitHub.Repo == "" {
			missing = append(missing, "auto_update.github.repo")
		}
		if c.AutoUpdate.GitHub.FilePath == "" {
			missing = append(missing, "auto_update.github.file_path")
		}
		if c.AutoUpdate.Render.APIKey == "" {
			missing = append(missing, "auto_update.render.api_key")
		}
		if c.AutoUpdate.Render.ServiceID == "" {
			missing = append(missing, "auto_update.render.service_id")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) Lock()    { c.mu.Lock() }
func (c *Config) Unlock()  { c.mu.Unlock() }
func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }

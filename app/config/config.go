package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        Log         `yaml:"log"`
	Storage    Storage     `yaml:"storage"`
	OpenAI     ModelConfig `yaml:"openai" validate:"required"`
	Agent      Agent       `yaml:"agent"`
	API        API         `yaml:"api"`
	MCP        MCP         `yaml:"mcp"`
	MCPClients []MCPClient `yaml:"mcp_clients" validate:"dive"`
	Reminders  Reminders   `yaml:"reminders"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"openai/gpt-4o-mini" validate:"required"`
}

type Storage struct {
	// Path to the JSONL event store
	Path string `yaml:"path" example:"data/events.jsonl"`
}

type Agent struct {
	// Upper bound on reasoning iterations per conversation turn
	MaxSteps int `yaml:"max_steps" example:"32"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.2"`
	// Number of transcript messages kept per conversation
	HistoryLimit int `yaml:"history_limit" example:"40"`
}

type API struct {
	// Serve the HTTP API
	Enabled bool `yaml:"enabled" example:"true"`
	// HTTP listen address
	Addr string `yaml:"addr" example:":8080"`
}

type MCP struct {
	// Expose the tool catalog over MCP
	Enabled bool `yaml:"enabled" example:"false"`
	// MCP listen address
	Addr string `yaml:"addr" example:":8081"`
}

type MCPClient struct {
	// Name prefix for the server's tools
	Name string `yaml:"name" example:"weather" validate:"required"`
	// Command to start the stdio server
	Command string `yaml:"command" example:"npx" validate:"required"`
	// Command arguments
	Args []string `yaml:"args"`
}

type Reminders struct {
	// Fire due reminders
	Enabled bool `yaml:"enabled" example:"true"`
	// Sweep interval
	CheckInterval string `yaml:"check_interval" example:"1m"`
	// Notification buffer size
	ChannelSize int `yaml:"channel_size" example:"64"`
}

type Log struct {
	// Minimum level: debug, info, warn or error
	Level string `yaml:"level" example:"info"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

func LoadFrom(path string) (*Config, error) {
	var result Config

	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if token := os.Getenv("OPENAI_API_KEY"); token != "" {
		result.OpenAI.Token = token
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		result.Log.Telegram.Token = token
	}

	if result.Log.Level == "" {
		result.Log.Level = "info"
	}
	if result.Storage.Path == "" {
		result.Storage.Path = "data/events.jsonl"
	}
	if result.Agent.MaxSteps == 0 {
		result.Agent.MaxSteps = 32
	}
	if result.Agent.Temperature == 0 {
		result.Agent.Temperature = 0.2
	}
	if result.Agent.HistoryLimit == 0 {
		result.Agent.HistoryLimit = 40
	}
	if result.API.Addr == "" {
		result.API.Addr = ":8080"
	}
	if result.MCP.Addr == "" {
		result.MCP.Addr = ":8081"
	}
	if result.Reminders.CheckInterval == "" {
		result.Reminders.CheckInterval = "1m"
	}
	if result.Reminders.ChannelSize == 0 {
		result.Reminders.ChannelSize = 64
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

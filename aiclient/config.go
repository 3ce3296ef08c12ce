package aiclient

import (
	"time"

	"github.com/itsneelabh/agentctl/core"
)

// Provider identifies which concrete model backend a Config targets.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

// Config holds configuration for Client construction, following the
// teacher's ai.AIConfig shape: provider selection, credentials, model
// parameters, and optional logger/telemetry injection.
type Config struct {
	Provider Provider

	APIKey  string
	BaseURL string

	Region          string
	AWSAccessKeyID  string
	AWSSecretKey    string
	AWSSessionToken string

	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration

	Logger    core.Logger
	Telemetry core.Telemetry
}

// Option configures a Config.
type Option func(*Config)

func WithAPIKey(key string) Option        { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option       { return func(c *Config) { c.BaseURL = url } }
func WithRegion(region string) Option     { return func(c *Config) { c.Region = region } }
func WithModel(model string) Option       { return func(c *Config) { c.Model = model } }
func WithLogger(l core.Logger) Option     { return func(c *Config) { c.Logger = l } }
func WithTelemetry(t core.Telemetry) Option {
	return func(c *Config) { c.Telemetry = t }
}

// WithAWSCredentials sets explicit static AWS credentials for the Bedrock
// provider; omit to fall back to the default AWS credential chain.
func WithAWSCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(c *Config) {
		c.AWSAccessKeyID = accessKey
		c.AWSSecretKey = secretKey
		c.AWSSessionToken = sessionToken
	}
}

// DefaultConfig returns sane defaults before options are applied.
func DefaultConfig(provider Provider) *Config {
	return &Config{
		Provider:    provider,
		Model:       defaultModelFor(provider),
		Temperature: 0.2,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
		Logger:      &core.NoOpLogger{},
		Telemetry:   &core.NoOpTelemetry{},
	}
}

func defaultModelFor(p Provider) string {
	switch p {
	case ProviderBedrock:
		return "anthropic.claude-3-5-sonnet-20241022-v2:0"
	default:
		return "gpt-4o"
	}
}

package config

import (
	"fmt"
	"os"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/anthropic"
	"scrapinator/pkg/llm/openai"
)

// BuildProvider creates an LLM provider based on configuration precedence:
// CLI flags > Environment variables > Config file > Defaults
//
// The provider name selects which API to speak; its API key environment
// variable (ANTHROPIC_API_KEY or OPENAI_API_KEY) is consulted when no key
// is given on the command line or in the config file.
func BuildProvider(cliProvider, cliModel, cliBaseURL, cliAPIKey string) (llm.Provider, error) {
	llmConfigFromFile := GetLLM()

	// Resolve provider name: CLI > config file > default
	providerName := cliProvider
	if providerName == "" && llmConfigFromFile != nil {
		providerName = llmConfigFromFile.GetProvider()
	}
	if providerName == "" {
		providerName = ProviderAnthropic
	}

	keyEnv, urlEnv := providerEnvVars(providerName)
	if keyEnv == "" {
		return nil, fmt.Errorf("unknown provider %q (must be %q or %q)", providerName, ProviderAnthropic, ProviderOpenAI)
	}

	// Start with CLI values (empty strings if not provided)
	finalModel := cliModel
	finalBaseURL := cliBaseURL
	finalAPIKey := cliAPIKey

	// Fall back to environment variables if CLI values are empty
	if finalAPIKey == "" {
		finalAPIKey = os.Getenv(keyEnv)
	}
	if finalBaseURL == "" {
		finalBaseURL = os.Getenv(urlEnv)
	}

	// Fall back to config file if still empty
	if llmConfigFromFile != nil {
		if finalModel == "" {
			if configFileModel := llmConfigFromFile.GetModel(); configFileModel != "" {
				finalModel = configFileModel
			}
		}
		if finalBaseURL == "" {
			if configFileBaseURL := llmConfigFromFile.GetBaseURL(); configFileBaseURL != "" {
				finalBaseURL = configFileBaseURL
			}
		}
		if finalAPIKey == "" {
			if configFileAPIKey := llmConfigFromFile.GetAPIKey(); configFileAPIKey != "" {
				finalAPIKey = configFileAPIKey
			}
		}
	}

	// Validate that API key was resolved
	if finalAPIKey == "" {
		return nil, fmt.Errorf("API key is required. Set %s environment variable, use --api-key flag, or configure in ~/.scrapinator/config.json", keyEnv)
	}

	// An empty model falls through to the provider's default
	switch providerName {
	case ProviderAnthropic:
		opts := []anthropic.ProviderOption{}
		if finalModel != "" {
			opts = append(opts, anthropic.WithModel(finalModel))
		}
		if finalBaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(finalBaseURL))
		}

		provider, err := anthropic.NewProvider(finalAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return provider, nil

	default:
		opts := []openai.ProviderOption{}
		if finalModel != "" {
			opts = append(opts, openai.WithModel(finalModel))
		}
		if finalBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(finalBaseURL))
		}

		provider, err := openai.NewProvider(finalAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return provider, nil
	}
}

// providerEnvVars returns the (api key, base url) environment variable
// names for a provider, or empty strings if the provider is unknown.
func providerEnvVars(providerName string) (string, string) {
	switch providerName {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"
	case ProviderOpenAI:
		return "OPENAI_API_KEY", "OPENAI_BASE_URL"
	default:
		return "", ""
	}
}

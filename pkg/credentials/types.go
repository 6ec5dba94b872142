package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for a single provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Source names where an upstream key was found.
type Source string

const (
	SourceNone      Source = ""
	SourceCampusEnv Source = "env:" + UpstreamKeyEnvVar
	SourceStored    Source = "credentials.toml"
	SourceEnv       Source = "env"
	SourceCodex     Source = "codex auth.json"
)

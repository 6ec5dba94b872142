package credentials

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ReadCodexAuthFile reads ~/.codex/auth.json and returns its contents and path.
// Returns nil, "" if the file cannot be read.
func ReadCodexAuthFile() ([]byte, string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, ""
	}

	authPath := filepath.Join(home, ".codex", "auth.json")
	data, err := os.ReadFile(authPath)
	if err != nil {
		return nil, ""
	}

	return data, authPath
}

// CodexAPIKey extracts OPENAI_API_KEY from codex auth JSON. OAuth tokens in
// the same file are ignored; they are not valid bearer keys for the
// completions API.
func CodexAPIKey(data []byte) string {
	if !gjson.ValidBytes(data) {
		return ""
	}
	key := gjson.GetBytes(data, "OPENAI_API_KEY")
	if key.Type != gjson.String {
		return ""
	}
	return key.String()
}

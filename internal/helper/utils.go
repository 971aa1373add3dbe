package helper

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeName reduces an arbitrary identifier to the character set safe for
// collection names.
func SanitizeName(s string) string {
	return unsafeNameRe.ReplaceAllString(s, "_")
}

// CreateFolder makes a directory and its parents if missing.
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}

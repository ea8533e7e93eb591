package ai

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultSystemInstruction is used when no instruction file exists.
const DefaultSystemInstruction = "You are a helpful assistant."

// LoadSystemInstruction reads the instruction text shared by every session.
// A missing or blank file falls back to DefaultSystemInstruction; other read
// failures are returned.
func LoadSystemInstruction(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("system prompt not found, using default instruction")
		return DefaultSystemInstruction, nil
	}
	if err != nil {
		return "", fmt.Errorf("read system prompt %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		log.Warn().Str("path", path).Msg("system prompt is empty, using default instruction")
		return DefaultSystemInstruction, nil
	}
	return string(data), nil
}

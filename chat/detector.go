package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"contract-intel-client/api"
)

// MaxEmailActions caps how many actions a single response can carry.
const MaxEmailActions = 3

var (
	emailActionBlockRe = regexp.MustCompile("(?s)```emailactions\\s*(.*?)\\s*```")
	blankRunRe         = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// DetectEmailActions extracts machine-actionable email directives from
// assistant response text. Only fenced blocks explicitly tagged
// emailactions and containing a JSON array yield actions; a block that
// fails to parse is logged and skipped without aborting the others. The
// result preserves encounter order and is truncated to MaxEmailActions.
func DetectEmailActions(text string, logger zerolog.Logger) []api.EmailAction {
	blocks := emailActionBlockRe.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		return nil
	}

	var actions []api.EmailAction
	for i, block := range blocks {
		var parsed []api.EmailAction
		if err := json.Unmarshal([]byte(strings.TrimSpace(block[1])), &parsed); err != nil {
			logger.Warn().Err(err).Int("block", i+1).Msg("failed to parse email action block")
			continue
		}
		actions = append(actions, parsed...)
	}

	if len(actions) > MaxEmailActions {
		actions = actions[:MaxEmailActions]
	}
	return actions
}

// StripEmailActionBlocks removes emailactions blocks from response text
// so the displayed message stays clean, collapsing the blank runs left
// behind.
func StripEmailActionBlocks(text string) string {
	cleaned := emailActionBlockRe.ReplaceAllString(text, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

package utils

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses a JSON string into the target type T. Unmarshaling is
// strict first; if it fails, the string is run through jsonrepair (which
// fixes unquoted keys, single quotes, trailing commas, truncated objects and
// similar near-JSON) and unmarshaling is retried once.
//
// This is the parse path for model-produced JSON such as tool-call argument
// payloads, which are frequently almost-but-not-quite valid.
func ParseStringAs[T any](content string) (T, error) {
	var result T

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	if err = json.Unmarshal([]byte(repairedJSON), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original content: %s, repaired: %s)", result, err, TruncateStringDefault(content), TruncateStringDefault(repairedJSON))
	}

	return result, nil
}

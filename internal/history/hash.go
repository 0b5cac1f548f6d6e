package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/foreman/internal/compliance"
)

// ComputeHash chains data onto prevHash.
func ComputeHash(prevHash, data string) string {
	sum := sha256.Sum256([]byte(prevHash + data))
	return hex.EncodeToString(sum[:])
}

// hashViolation hashes the stored fields of v onto prevHash.
func hashViolation(prevHash string, v *compliance.Violation) (string, error) {
	ctx, err := json.Marshal(v.Context)
	if err != nil {
		return "", err
	}
	data := strings.Join([]string{
		v.ID.String(),
		v.RuleID,
		string(v.Severity),
		string(v.Action),
		string(v.Operation),
		string(v.Phase),
		v.DocumentID,
		v.TemplateID,
		v.Message,
		strconv.FormatBool(v.Blocked),
		string(ctx),
		v.OccurredAt.UTC().Format(time.RFC3339Nano),
	}, "|")
	return ComputeHash(prevHash, data), nil
}

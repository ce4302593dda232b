package licensing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const keyPrefix = "DB-"

var planCodes = map[string]Plan{
	"FREE":       PlanFree,
	"PRO":        PlanPro,
	"TEAM":       PlanTeam,
	"ENT":        PlanEnterprise,
	"ENTERPRISE": PlanEnterprise,
}

// DecodeKey returns the plan encoded in a DB-{PLAN}-{HASH} license key.
// The hash is not checked.
func DecodeKey(key string) (Plan, error) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", fmt.Errorf("%w: missing %s prefix", ErrInvalidKey, keyPrefix)
	}
	parts := strings.Split(key, "-")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: expected DB-PLAN-HASH", ErrInvalidKey)
	}
	code := strings.ToUpper(parts[1])
	plan, ok := planCodes[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown plan %s", ErrInvalidKey, code)
	}
	return plan, nil
}

// GenerateKey issues a new key for plan tied to identifier (usually an email).
func GenerateKey(plan Plan, identifier string) string {
	return generateKey(plan, identifier, time.Now().Unix())
}

func generateKey(plan Plan, identifier string, timestamp int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", identifier, timestamp, plan)))
	return keyPrefix + planCode(plan) + "-" + hex.EncodeToString(sum[:])[:12]
}

func planCode(p Plan) string {
	if p == PlanEnterprise {
		return "ENT"
	}
	return strings.ToUpper(string(p))
}

package invite

import (
	"strings"

	"github.com/google/uuid"
)

const codeLength = 8

// Generate returns an opaque invite code for gating access to a private party.
func Generate() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeLength])
}

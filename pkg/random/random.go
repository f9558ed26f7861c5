package random

import (
	"strings"

	"github.com/google/uuid"
)

const idLen = 10

// ID returns a short random identifier for naming jobs and scratch directories.
func ID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLen]
}

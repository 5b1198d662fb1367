package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a sortable entity identifier.
func New() string {
	return ksuid.New().String()
}

// Token returns a short random token used to keep storage paths
// collision-free when two uploads land in the same millisecond.
func Token() string {
	return uuid.NewString()[:8]
}

package ecs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Every resource the engine creates carries these tags so that projects can
// be enumerated and cleaned up later.
const (
	ManagedByTagKey   = "managed-by"
	ManagedByTagValue = "skylift"
	ProjectTagKey     = "skylift:project"
)

const namePrefix = "skylift-"

// resourceName derives the deterministic control-plane name for a project.
// Stable names are what make every ensure call a lookup-then-converge
// instead of a blind create.
func resourceName(projectID string) string {
	return namePrefix + projectID
}

// targetGroupName fits resourceName into the gateway's 32-character limit
// on routing sink names. Truncation alone would collide projects sharing a
// long common prefix, so truncated names carry a hash of the full id.
func targetGroupName(projectID string) string {
	name := resourceName(projectID)
	if len(name) <= 32 {
		return name
	}
	sum := sha256.Sum256([]byte(projectID))
	suffix := hex.EncodeToString(sum[:3])
	name = strings.TrimRight(name[:32-len(suffix)-1], "-")
	return name + "-" + suffix
}

func projectFromResourceName(name string) string {
	return strings.TrimPrefix(name, namePrefix)
}

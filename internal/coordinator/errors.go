package coordinator

import (
	"errors"
	"fmt"
)

// ErrNoReplicas is returned when the ring has no nodes to place a key on
// at all (an empty or not-yet-joined cluster).
var ErrNoReplicas = errors.New("coordinator: no replica nodes available for key")

// ReplicationError reports that a replicated operation could not reach
// its required consistency level, carrying the observed counts rather
// than just a message.
type ReplicationError struct {
	Op       string
	Required int
	Observed int
	Total    int
}

func (e *ReplicationError) Error() string {
	return fmt.Sprintf("coordinator: %s below required consistency: %d/%d replicas responded (needed %d)",
		e.Op, e.Observed, e.Total, e.Required)
}

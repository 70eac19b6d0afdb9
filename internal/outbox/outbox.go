// Package outbox implements the claim protocol and outcome bookkeeping
// against the relational outbox table.
package outbox

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an outbox record.
//
// Records are inserted as pending by the external producers, flipped to
// processing by the claim protocol, and finish in done or failed (or back in
// pending for another attempt). done and failed are terminal for the engine;
// only an external operator action moves a failed record again.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Record is one claimed row of the outbox table.
type Record struct {
	ID         int64
	EventKind  string
	Payload    json.RawMessage
	OccurredAt time.Time
	Attempts   int32
}

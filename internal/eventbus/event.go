package eventbus

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeImportLifecycle EventType = "import_lifecycle"
)

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	Retries   int         `json:"retries"`
}

// ImportLifecycleEvent marks one transition of an import session: created,
// confirmed or cancelled.
type ImportLifecycleEvent struct {
	CompanyID uuid.UUID `json:"company_id"`
	ImportID  uuid.UUID `json:"import_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
}

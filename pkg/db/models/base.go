package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the row has none so inserts do not depend on
// database-side defaults.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

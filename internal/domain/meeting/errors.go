package meeting

import (
	"fmt"
)

// DataShapeError reports a record store response missing a field the bot
// requires. It is raised per record so one malformed page cannot abort a whole
// discovery cycle.
type DataShapeError struct {
	PageID string
	Field  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("record store page %s: missing or malformed field %q", e.PageID, e.Field)
}

package logging

import "github.com/oklog/ulid/v2"

// GenerateRunID returns a new ULID identifying one elfload invocation.
// ULIDs sort by creation time, so log files named after them list in run order.
func GenerateRunID() string {
	return ulid.Make().String()
}

package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable identifier. ULIDs keep audit rows
// and storage keys ordered by creation time without a database sequence.
func New() string {
	return ulid.Make().String()
}

// Package runid generates the identifier used to correlate one run's log
// lines, report file, and (if enabled) metrics series.
package runid

import "github.com/rs/xid"

// New returns a fresh, sortable, globally-unique run identifier.
func New() string {
	return xid.New().String()
}

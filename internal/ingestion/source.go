package ingestion

import (
	"strings"
)

// DefaultSourceName is used when a caller supplies no usable name.
const DefaultSourceName = "document.pdf"

// SourceName derives the source identifier for an uploaded file name. Some
// browsers send a full client-side path (e.g. `C:\fakepath\report.pdf`), so
// only the final element is kept, whichever separator the client used.
// CLI callers pass the path as typed and do not go through this.
func SourceName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return DefaultSourceName
	}
	return name
}

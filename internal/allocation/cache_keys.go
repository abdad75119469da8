package allocation

import (
	"fmt"
	"time"
)

// Single-entity reads are cached longer than list reads; lists churn on
// every mutation anyway.
const (
	entityCacheTTL = 5 * time.Minute
	listCacheTTL   = time.Minute

	listKeyPrefix = "allocations:list:"
)

func entityKey(id uint) string {
	return fmt.Sprintf("allocation:%d", id)
}

func listKey(f ListFilter) string {
	return fmt.Sprintf("%sp=%d:l=%d:s=%s:to=%d:from=%d",
		listKeyPrefix, f.Page, f.Limit, f.Status, f.ToOrgID, f.FromOrgID)
}

func listKeyPattern() string {
	return listKeyPrefix + "*"
}

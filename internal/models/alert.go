package models

import "fmt"

// AlertKey identifies one status-change alert. Version is the UpdatedAt of the
// snapshot the transition was detected against, so the same transition seen
// again after a failed persist maps to the same key.
type AlertKey struct {
	WatchID string
	CRN     string
	Status  SectionStatus
	Version int64
}

func (k AlertKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", k.WatchID, k.CRN, k.Status, k.Version)
}

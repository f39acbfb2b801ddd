package checker

import "github.com/Houeta/seat-watch/internal/models"

// DetectChanges returns the entries of current whose status differs from the
// same CRN in previous, in the order of current. A CRN missing from either
// side is never reported.
func DetectChanges(previous, current []models.Section) []models.Section {
	prevStatus := make(map[string]models.SectionStatus, len(previous))
	for _, s := range previous {
		prevStatus[s.CRN] = s.Status
	}

	var changes []models.Section
	for _, s := range current {
		if old, found := prevStatus[s.CRN]; found && old != s.Status {
			changes = append(changes, s)
		}
	}

	return changes
}

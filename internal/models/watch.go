package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidSpec is returned when a search spec selects by neither or both modes.
var ErrInvalidSpec = errors.New("search spec must select either subject and course number or a list of CRNs")

// WatchStatus is the lifecycle state of a watch.
type WatchStatus string

const (
	WatchInitializing WatchStatus = "initializing"
	WatchActive       WatchStatus = "active"
	WatchFailed       WatchStatus = "failed"
)

// SearchSpec selects sections either by subject and course number or by a set of CRNs.
type SearchSpec struct {
	Subject      string
	CourseNumber string
	CRNs         []string
}

// NewCourseSpec builds a spec selecting every section of one course.
func NewCourseSpec(subject, courseNumber string) (SearchSpec, error) {
	spec := SearchSpec{
		Subject:      strings.ToUpper(strings.TrimSpace(subject)),
		CourseNumber: strings.TrimSpace(courseNumber),
	}

	return spec, spec.Validate()
}

// NewCRNSpec builds a spec selecting the given CRNs. Blank and repeated entries are dropped.
func NewCRNSpec(crns []string) (SearchSpec, error) {
	var cleaned []string
	for _, crn := range crns {
		crn = strings.TrimSpace(crn)
		if crn == "" || slices.Contains(cleaned, crn) {
			continue
		}
		cleaned = append(cleaned, crn)
	}

	spec := SearchSpec{CRNs: cleaned}

	return spec, spec.Validate()
}

// ByCourse reports whether the spec selects by subject and course number.
func (s SearchSpec) ByCourse() bool {
	return s.Subject != "" && s.CourseNumber != ""
}

// Validate checks that exactly one selection mode is set.
func (s SearchSpec) Validate() error {
	byCourse := s.Subject != "" || s.CourseNumber != ""
	byCRN := len(s.CRNs) > 0

	switch {
	case byCourse && byCRN:
		return fmt.Errorf("%w: both modes set", ErrInvalidSpec)
	case byCRN:
		return nil
	case s.ByCourse():
		return nil
	default:
		return ErrInvalidSpec
	}
}

func (s SearchSpec) String() string {
	if s.ByCourse() {
		return s.Subject + " " + s.CourseNumber
	}

	return "CRN " + strings.Join(s.CRNs, ",")
}

// Watch is a user's subscription to the status of one or more course sections.
type Watch struct {
	ID        string
	Spec      SearchSpec
	Recipient string // notification target, address format depends on the notifier
	Status    WatchStatus
	Sections  []Section
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cursor marks a position in the creation order of watches. The zero value
// points before the oldest watch.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor points at the start.
func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == ""
}

// Cursor returns the position right at w.
func (w Watch) Cursor() Cursor {
	return Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
}

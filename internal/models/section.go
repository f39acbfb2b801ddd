package models

// SectionStatus is the enrollment status of a course section.
type SectionStatus string

const (
	StatusOpen   SectionStatus = "Open"
	StatusClosed SectionStatus = "Closed"
)

// Section is a point-in-time observation of one course section.
type Section struct {
	CRN           string        `csv:"crn" json:"crn"`
	Subject       string        `csv:"subject" json:"subject"`
	Course        string        `csv:"course" json:"course"`
	SectionNumber string        `csv:"section" json:"section"`
	Title         string        `csv:"title" json:"title"`
	Instructor    string        `csv:"instructor" json:"instructor"`
	Location      string        `csv:"location" json:"location"`
	Status        SectionStatus `csv:"status" json:"status"`
}

// Package notify renders the two message kinds the engine sends and provides
// a notifier that only logs them.
package notify

import (
	"fmt"
	"strings"

	"github.com/Houeta/seat-watch/internal/models"
)

const separator = "--------------------------------------------------"

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Confirmation lists the baseline sections of a newly activated watch.
func Confirmation(sections []models.Section) Message {
	var b strings.Builder
	b.WriteString("You have started watching the following courses:\n\n")

	for _, s := range sections {
		fmt.Fprintf(&b, "Course: %s\n", s.Title)
		fmt.Fprintf(&b, "CRN: %s\n", s.CRN)
		fmt.Fprintf(&b, "Subject: %s %s-%s\n", s.Subject, s.Course, s.SectionNumber)
		fmt.Fprintf(&b, "Instructor: %s\n", s.Instructor)
		fmt.Fprintf(&b, "Current Status: %s\n", s.Status)
		fmt.Fprintf(&b, "Location: %s\n", s.Location)
		b.WriteString(separator + "\n\n")
	}

	b.WriteString("You will be notified when the status of any of these sections changes.")

	return Message{Subject: "Course Watch Confirmation - Initial Status", Body: b.String()}
}

// StatusChange announces one section's new status.
func StatusChange(s models.Section) Message {
	var b strings.Builder
	b.WriteString("The following section has changed status:\n\n")
	fmt.Fprintf(&b, "Course: %s\n", s.Title)
	fmt.Fprintf(&b, "CRN: %s\n", s.CRN)
	fmt.Fprintf(&b, "Subject: %s %s-%s\n", s.Subject, s.Course, s.SectionNumber)
	fmt.Fprintf(&b, "New Status: %s\n", s.Status)

	return Message{
		Subject: fmt.Sprintf("Course Status Change Alert: CRN %s is %s", s.CRN, s.Status),
		Body:    b.String(),
	}
}

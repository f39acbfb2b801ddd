package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/PuerkitoBio/goquery"
)

const noInstructor = "No instructor assigned"

var errMissingField = errors.New("missing required field")

// record is one row of the class search response.
type record struct {
	CRN            string  `json:"SWV_CLASS_SEARCH_CRN"`
	Subject        string  `json:"SWV_CLASS_SEARCH_SUBJECT"`
	Course         string  `json:"SWV_CLASS_SEARCH_COURSE"`
	Section        string  `json:"SWV_CLASS_SEARCH_SECTION"`
	Title          string  `json:"SWV_CLASS_SEARCH_TITLE"`
	InstructorJSON *string `json:"SWV_CLASS_SEARCH_INSTRCTR_JSON"`
	Attributes     string  `json:"SWV_CLASS_SEARCH_ATTRIBUTES"`
	SeatOpen       string  `json:"STUSEAT_OPEN"`
}

type instructor struct {
	Name string `json:"NAME"`
}

// mapRecords filters raw records by spec and converts them to sections.
// Malformed records are dropped one by one, duplicates keep the first CRN seen.
func (c *Client) mapRecords(ctx context.Context, spec models.SearchSpec, raw []json.RawMessage) []models.Section {
	sections := make([]models.Section, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for idx, msg := range raw {
		section, err := toSection(msg)
		if err != nil {
			c.log.WarnContext(ctx, "dropping malformed section record", "index", idx, "error", err)
			continue
		}

		if !matches(spec, section) {
			continue
		}

		if _, dup := seen[section.CRN]; dup {
			c.log.DebugContext(ctx, "duplicate CRN in response", "crn", section.CRN)
			continue
		}
		seen[section.CRN] = struct{}{}

		sections = append(sections, section)
	}

	return sections
}

func toSection(msg json.RawMessage) (models.Section, error) {
	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return models.Section{}, fmt.Errorf("failed to decode record: %w", err)
	}

	crn := strings.TrimSpace(rec.CRN)
	subject := strings.TrimSpace(rec.Subject)
	course := strings.TrimSpace(rec.Course)
	if crn == "" || subject == "" || course == "" {
		return models.Section{}, fmt.Errorf("%w: crn=%q subject=%q course=%q", errMissingField, crn, subject, course)
	}

	name, err := instructorName(rec.InstructorJSON)
	if err != nil {
		return models.Section{}, err
	}

	status := models.StatusClosed
	if rec.SeatOpen == "Y" {
		status = models.StatusOpen
	}

	return models.Section{
		CRN:           crn,
		Subject:       subject,
		Course:        course,
		SectionNumber: strings.TrimSpace(rec.Section),
		Title:         flattenHTML(rec.Title),
		Instructor:    name,
		Location:      flattenHTML(rec.Attributes),
		Status:        status,
	}, nil
}

func matches(spec models.SearchSpec, section models.Section) bool {
	if spec.ByCourse() {
		return strings.EqualFold(section.Subject, spec.Subject) && section.Course == spec.CourseNumber
	}

	return slices.Contains(spec.CRNs, section.CRN)
}

// instructorName extracts the first instructor from the embedded JSON list.
func instructorName(raw *string) (string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return noInstructor, nil
	}

	var list []instructor
	if err := json.Unmarshal([]byte(*raw), &list); err != nil {
		return "", fmt.Errorf("failed to decode instructor list: %w", err)
	}

	if len(list) == 0 || strings.TrimSpace(list[0].Name) == "" {
		return noInstructor, nil
	}

	return strings.TrimSpace(list[0].Name), nil
}

// flattenHTML turns an upstream field that may contain markup or entities into plain text.
func flattenHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	doc.Find("br").ReplaceWithHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}

package source

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper is a mock for http.RoundTripper.
type mockRoundTripper struct {
	response *http.Response
	err      error
}

func (m *mockRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return m.response, m.err
}

const sampleResponse = `[
	{
		"SWV_CLASS_SEARCH_CRN": "12345",
		"SWV_CLASS_SEARCH_SUBJECT": "CSCE",
		"SWV_CLASS_SEARCH_COURSE": "121",
		"SWV_CLASS_SEARCH_SECTION": "501",
		"SWV_CLASS_SEARCH_TITLE": "INTRO PGM DESIGN &amp; CONCEPT",
		"SWV_CLASS_SEARCH_INSTRCTR_JSON": "[{\"NAME\":\"Smith, Jane (P)\"}]",
		"SWV_CLASS_SEARCH_ATTRIBUTES": "College Station<br>Main Campus",
		"STUSEAT_OPEN": "Y"
	},
	{
		"SWV_CLASS_SEARCH_CRN": "12346",
		"SWV_CLASS_SEARCH_SUBJECT": "CSCE",
		"SWV_CLASS_SEARCH_COURSE": "121",
		"SWV_CLASS_SEARCH_SECTION": "502",
		"SWV_CLASS_SEARCH_TITLE": "INTRO PGM DESIGN",
		"SWV_CLASS_SEARCH_INSTRCTR_JSON": null,
		"SWV_CLASS_SEARCH_ATTRIBUTES": "College Station",
		"STUSEAT_OPEN": "N"
	},
	{
		"SWV_CLASS_SEARCH_CRN": "22222",
		"SWV_CLASS_SEARCH_SUBJECT": "MATH",
		"SWV_CLASS_SEARCH_COURSE": "151",
		"SWV_CLASS_SEARCH_SECTION": "200",
		"SWV_CLASS_SEARCH_TITLE": "ENGR MATH I",
		"SWV_CLASS_SEARCH_INSTRCTR_JSON": "[]",
		"SWV_CLASS_SEARCH_ATTRIBUTES": "",
		"STUSEAT_OPEN": "N"
	},
	{
		"SWV_CLASS_SEARCH_CRN": "",
		"SWV_CLASS_SEARCH_SUBJECT": "CSCE",
		"SWV_CLASS_SEARCH_COURSE": "121"
	},
	{
		"SWV_CLASS_SEARCH_CRN": "12347",
		"SWV_CLASS_SEARCH_SUBJECT": "CSCE",
		"SWV_CLASS_SEARCH_COURSE": "121",
		"SWV_CLASS_SEARCH_INSTRCTR_JSON": "not json"
	},
	{
		"SWV_CLASS_SEARCH_CRN": 12348
	}
]`

func newTestClient(url string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(logger, url, "202511", 50, time.Second)
}

// =============================================================================
// Tests for record mapping
// =============================================================================

func TestMapRecords(t *testing.T) {
	t.Parallel()

	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(sampleResponse), &raw))

	c := newTestClient("")

	testCases := []struct {
		name     string
		spec     models.SearchSpec
		expected []models.Section
	}{
		{
			name: "course mode filters by subject and course, drops malformed rows",
			spec: models.SearchSpec{Subject: "CSCE", CourseNumber: "121"},
			expected: []models.Section{
				{
					CRN: "12345", Subject: "CSCE", Course: "121", SectionNumber: "501",
					Title: "INTRO PGM DESIGN & CONCEPT", Instructor: "Smith, Jane (P)",
					Location: "College Station Main Campus", Status: models.StatusOpen,
				},
				{
					CRN: "12346", Subject: "CSCE", Course: "121", SectionNumber: "502",
					Title: "INTRO PGM DESIGN", Instructor: noInstructor,
					Location: "College Station", Status: models.StatusClosed,
				},
			},
		},
		{
			name: "crn mode keeps only listed CRNs",
			spec: models.SearchSpec{CRNs: []string{"22222", "99999"}},
			expected: []models.Section{
				{
					CRN: "22222", Subject: "MATH", Course: "151", SectionNumber: "200",
					Title: "ENGR MATH I", Instructor: noInstructor, Status: models.StatusClosed,
				},
			},
		},
		{
			name:     "no match",
			spec:     models.SearchSpec{Subject: "HIST", CourseNumber: "105"},
			expected: []models.Section{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sections := c.mapRecords(t.Context(), tc.spec, raw)

			assert.Equal(t, tc.expected, sections)
		})
	}
}

func TestMapRecords_DuplicateCRN(t *testing.T) {
	t.Parallel()

	raw := []json.RawMessage{
		json.RawMessage(`{"SWV_CLASS_SEARCH_CRN":"1","SWV_CLASS_SEARCH_SUBJECT":"A","SWV_CLASS_SEARCH_COURSE":"1","STUSEAT_OPEN":"Y"}`),
		json.RawMessage(`{"SWV_CLASS_SEARCH_CRN":"1","SWV_CLASS_SEARCH_SUBJECT":"A","SWV_CLASS_SEARCH_COURSE":"1","STUSEAT_OPEN":"N"}`),
	}

	sections := newTestClient("").mapRecords(t.Context(), models.SearchSpec{CRNs: []string{"1"}}, raw)

	require.Len(t, sections, 1)
	assert.Equal(t, models.StatusOpen, sections[0].Status)
}

func TestFlattenHTML(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain text", flattenHTML("  plain   text "))
	assert.Equal(t, "A & B", flattenHTML("A &amp; B"))
	assert.Equal(t, "Room 101 Building", flattenHTML("<b>Room 101</b><br/>Building"))
}

// =============================================================================
// Tests for network logic
// =============================================================================

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	spec := models.SearchSpec{Subject: "CSCE", CourseNumber: "121"}

	testCases := []struct {
		name           string
		mockResponse   *http.Response
		mockError      error
		clientURL      string
		spec           models.SearchSpec
		expectedErrMsg string
		transient      bool
	}{
		{
			name: "Server Error (500)",
			mockResponse: &http.Response{
				StatusCode: http.StatusInternalServerError,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader("Error")),
			},
			clientURL:      "http://test.com",
			spec:           spec,
			expectedErrMsg: "status code error: [500]",
			transient:      true,
		},
		{
			name: "Not found (404)",
			mockResponse: &http.Response{
				StatusCode: http.StatusNotFound,
				Status:     "404 Not Found",
				Body:       io.NopCloser(strings.NewReader("")),
			},
			clientURL:      "http://test.com",
			spec:           spec,
			expectedErrMsg: "status code error: [404]",
		},
		{
			name:           "Network error",
			mockError:      errors.New("connection failed"),
			clientURL:      "http://test.com",
			spec:           spec,
			expectedErrMsg: "connection failed",
			transient:      true,
		},
		{
			name: "Invalid body",
			mockResponse: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("<html>")),
			},
			clientURL:      "http://test.com",
			spec:           spec,
			expectedErrMsg: "failed to decode response",
		},
		{
			name:           "Invalid URL",
			clientURL:      "://invalid-url",
			spec:           spec,
			expectedErrMsg: "failed to parse destination URL",
		},
		{
			name:           "Invalid spec",
			clientURL:      "http://test.com",
			spec:           models.SearchSpec{},
			expectedErrMsg: "search spec must select",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(tc.clientURL)
			c.client = &http.Client{
				Transport: &mockRoundTripper{response: tc.mockResponse, err: tc.mockError},
			}

			sections, err := c.Fetch(t.Context(), tc.spec)

			require.Error(t, err)
			assert.Nil(t, sections)
			assert.ErrorContains(t, err, tc.expectedErrMsg)
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	t.Cleanup(srv.Close)

	sections, err := newTestClient(srv.URL).Fetch(t.Context(), models.SearchSpec{Subject: "CSCE", CourseNumber: "121"})

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "12345", sections[0].CRN)
	assert.Equal(t, searchRequest{
		EndRow: 50, TermCode: "202511", PublicSearch: "Y", Subject: "CSCE", CourseNumber: "121",
	}, got)
}

func TestFetch_EmptyResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "[]")
	}))
	t.Cleanup(srv.Close)

	sections, err := newTestClient(srv.URL).Fetch(t.Context(), models.SearchSpec{CRNs: []string{"1"}})

	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(&StatusError{Code: http.StatusServiceUnavailable}))
	assert.True(t, IsTransient(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, IsTransient(&StatusError{Code: http.StatusBadRequest}))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.False(t, IsTransient(assert.AnError))
}

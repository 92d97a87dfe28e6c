package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"mentor_feedback_bot/internal/domain/meeting"

	"github.com/jomei/notionapi"
	"github.com/sirupsen/logrus"
)

func titleProp(content string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: content}}},
	}
}

func relationProp(id string) *notionapi.RelationProperty {
	return &notionapi.RelationProperty{
		Relation: []notionapi.Relation{{ID: notionapi.PageID(id)}},
	}
}

func chatIDRollup(chatID float64) *notionapi.RollupProperty {
	return &notionapi.RollupProperty{
		Rollup: notionapi.Rollup{
			Type:  "array",
			Array: notionapi.PropertyArray{&notionapi.NumberProperty{Number: chatID}},
		},
	}
}

// meetingProps builds the full well-formed property set of a meeting page.
func meetingProps(name string) notionapi.Properties {
	return notionapi.Properties{
		propName:    titleProp(name),
		propMentors: relationProp("mentor-1"),
		propStudent: relationProp("student-1"),
		propChatID:  chatIDRollup(123),
	}
}

func asShapeError(t *testing.T, err error, wantField string) {
	t.Helper()
	if err == nil {
		t.Fatalf("field %s: expected a shape error, got nil", wantField)
	}
	var shapeErr *meeting.DataShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("field %s: error type %T, want *meeting.DataShapeError", wantField, err)
	}
	if shapeErr.Field != wantField {
		t.Fatalf("shape error field: got %q, want %q", shapeErr.Field, wantField)
	}
	if shapeErr.PageID == "" {
		t.Fatal("shape error carries no page id")
	}
}

// --- Shape validation helpers ---

func TestTitleText(t *testing.T) {
	got, err := titleText(meetingProps("Sprint Review"), propName, "page-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Sprint Review" {
		t.Fatalf("title: got %q, want %q", got, "Sprint Review")
	}

	bad := map[string]notionapi.Properties{
		"missing property":  {},
		"wrong type":        {propName: &notionapi.RichTextProperty{}},
		"empty title":       {propName: &notionapi.TitleProperty{}},
		"text part missing": {propName: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "x"}}}},
	}
	for name, props := range bad {
		_, err := titleText(props, propName, "page-1")
		t.Run(name, func(t *testing.T) { asShapeError(t, err, propName) })
	}
}

func TestFirstRelationID(t *testing.T) {
	got, err := firstRelationID(meetingProps("m"), propMentors, "page-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "mentor-1" {
		t.Fatalf("relation id: got %q, want %q", got, "mentor-1")
	}

	bad := map[string]notionapi.Properties{
		"missing property": {},
		"wrong type":       {propMentors: titleProp("not a relation")},
		"empty relation":   {propMentors: &notionapi.RelationProperty{}},
	}
	for name, props := range bad {
		_, err := firstRelationID(props, propMentors, "page-1")
		t.Run(name, func(t *testing.T) { asShapeError(t, err, propMentors) })
	}
}

func TestRollupChatID(t *testing.T) {
	got, err := rollupChatID(meetingProps("m"), propChatID, "page-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "123" {
		t.Fatalf("chat id: got %q, want %q", got, "123")
	}

	bad := map[string]notionapi.Properties{
		"missing property":  {},
		"wrong type":        {propChatID: titleProp("123")},
		"non-array rollup":  {propChatID: &notionapi.RollupProperty{Rollup: notionapi.Rollup{Type: "number", Number: 123}}},
		"empty array":       {propChatID: &notionapi.RollupProperty{Rollup: notionapi.Rollup{Type: "array"}}},
		"non-number member": {propChatID: &notionapi.RollupProperty{Rollup: notionapi.Rollup{Type: "array", Array: notionapi.PropertyArray{titleProp("x")}}}},
	}
	for name, props := range bad {
		_, err := rollupChatID(props, propChatID, "page-1")
		t.Run(name, func(t *testing.T) { asShapeError(t, err, propChatID) })
	}
}

// --- Query fakes ---

type fakeDatabaseService struct {
	responses []*notionapi.DatabaseQueryResponse
	cursors   []notionapi.Cursor
}

func (s *fakeDatabaseService) Query(_ context.Context, _ notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	s.cursors = append(s.cursors, req.StartCursor)
	if len(s.cursors) > len(s.responses) {
		return nil, fmt.Errorf("unexpected query call %d", len(s.cursors))
	}
	return s.responses[len(s.cursors)-1], nil
}

func (s *fakeDatabaseService) Get(context.Context, notionapi.DatabaseID) (*notionapi.Database, error) {
	return nil, fmt.Errorf("unexpected Get call")
}

func (s *fakeDatabaseService) Create(context.Context, *notionapi.DatabaseCreateRequest) (*notionapi.Database, error) {
	return nil, fmt.Errorf("unexpected Create call")
}

func (s *fakeDatabaseService) Update(context.Context, notionapi.DatabaseID, *notionapi.DatabaseUpdateRequest) (*notionapi.Database, error) {
	return nil, fmt.Errorf("unexpected Update call")
}

type fakePageService struct {
	pages map[notionapi.PageID]*notionapi.Page
}

func (s *fakePageService) Get(_ context.Context, id notionapi.PageID) (*notionapi.Page, error) {
	page, ok := s.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s not found", id)
	}
	return page, nil
}

func (s *fakePageService) Create(context.Context, *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return nil, fmt.Errorf("unexpected Create call")
}

func (s *fakePageService) Update(context.Context, notionapi.PageID, *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return nil, fmt.Errorf("unexpected Update call")
}

func newTestClient(db *fakeDatabaseService) *Client {
	l := logrus.New()
	l.SetOutput(io.Discard)
	api := &notionapi.Client{
		Database: db,
		Page: &fakePageService{pages: map[notionapi.PageID]*notionapi.Page{
			"mentor-1": {ID: "mentor-1", Properties: notionapi.Properties{propName: titleProp("Иван")}},
		}},
	}
	return &Client{
		api:          api,
		meetingsDBID: "meetings-db",
		feedbackDBID: "feedback-db",
		logger:       logrus.NewEntry(l),
	}
}

// --- QueryCompleted ---

func TestQueryCompleted_SkipsPagesWithUnusableShape(t *testing.T) {
	broken := meetingProps("Broken Meeting")
	delete(broken, propMentors)

	db := &fakeDatabaseService{responses: []*notionapi.DatabaseQueryResponse{{
		Results: []notionapi.Page{
			{ID: "mtg-bad", Properties: broken},
			{ID: "mtg-1", Properties: meetingProps("Sprint Review")},
		},
	}}}
	c := newTestClient(db)

	meetings, err := c.QueryCompleted(context.Background(), 14*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 1 {
		t.Fatalf("meetings: got %d, want 1", len(meetings))
	}
	m := meetings[0]
	if m.ID != "mtg-1" || m.Name != "Sprint Review" || m.MentorName != "Иван" ||
		m.StudentID != "student-1" || m.ChatID != "123" {
		t.Fatalf("snapshot fields: %+v", m)
	}
}

func TestQueryCompleted_FollowsPaginationCursor(t *testing.T) {
	db := &fakeDatabaseService{responses: []*notionapi.DatabaseQueryResponse{
		{
			Results:    []notionapi.Page{{ID: "mtg-1", Properties: meetingProps("First")}},
			HasMore:    true,
			NextCursor: "cursor-2",
		},
		{
			Results: []notionapi.Page{{ID: "mtg-2", Properties: meetingProps("Second")}},
		},
	}}
	c := newTestClient(db)

	meetings, err := c.QueryCompleted(context.Background(), 14*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 2 {
		t.Fatalf("meetings: got %d, want 2", len(meetings))
	}
	if meetings[0].ID != "mtg-1" || meetings[1].ID != "mtg-2" {
		t.Fatalf("meeting order: %s, %s", meetings[0].ID, meetings[1].ID)
	}
	if len(db.cursors) != 2 || db.cursors[0] != "" || db.cursors[1] != "cursor-2" {
		t.Fatalf("query cursors: %v", db.cursors)
	}
}

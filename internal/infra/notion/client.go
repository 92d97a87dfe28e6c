// internal/infra/notion/client.go
package notion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mentor_feedback_bot/internal/domain/meeting"

	"github.com/jomei/notionapi"
	"github.com/sirupsen/logrus"
)

// Property names in the meetings and feedback databases. These mirror the
// production Notion schema and must not be renamed independently of it.
const (
	propName             = "Name"
	propStatus           = "Status"
	propDate             = "Date"
	propMentors          = "Mentor(s)"
	propStudent          = "Student"
	propChatID           = "TG_CHAT_ID"
	propFeedbackReceived = "BOT Feedback Received"
	propSummary          = "Summary"
)

const statusDone = "Done"

// Score columns of the feedback database, ordered by question index.
var scorePropNames = [...]string{
	"[1] MEETING PRODUCTIVITY",
	"[2] RESPONSE SPEED",
	"[3] PLAN UNDERSTANDING",
	"[4] EXPERTISE",
	"[5] EFFECTIVENESS (TRACKER)",
}

// Client implements meeting.RecordStore against the Notion API.
type Client struct {
	api          *notionapi.Client
	meetingsDBID notionapi.DatabaseID
	feedbackDBID notionapi.DatabaseID
	logger       *logrus.Entry
}

func NewClient(apiKey, meetingsDBID, feedbackDBID string, logger *logrus.Entry) *Client {
	return &Client{
		api:          notionapi.NewClient(notionapi.Token(apiKey)),
		meetingsDBID: notionapi.DatabaseID(meetingsDBID),
		feedbackDBID: notionapi.DatabaseID(feedbackDBID),
		logger:       logger,
	}
}

// QueryCompleted fetches meetings that are Done, fall inside the trailing
// window and have no feedback collected yet. Pages whose shape does not
// validate are logged and skipped so one malformed record cannot abort the
// whole discovery cycle.
func (c *Client) QueryCompleted(ctx context.Context, window time.Duration) ([]*meeting.Meeting, error) {
	now := time.Now()
	upper := notionapi.Date(now)
	lower := notionapi.Date(now.Add(-window))

	request := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{Property: propStatus, Status: &notionapi.StatusFilterCondition{Equals: statusDone}},
			notionapi.PropertyFilter{Property: propDate, Date: &notionapi.DateFilterCondition{OnOrAfter: &lower}},
			notionapi.PropertyFilter{Property: propDate, Date: &notionapi.DateFilterCondition{OnOrBefore: &upper}},
			// CheckboxFilterCondition marshals Equals with omitempty, so the
			// "equals false" predicate has to be spelled does_not_equal true.
			notionapi.PropertyFilter{Property: propFeedbackReceived, Checkbox: &notionapi.CheckboxFilterCondition{DoesNotEqual: true}},
		},
	}

	// The query endpoint pages at 100 results; follow the cursor so a busy
	// window cannot truncate discovery.
	var meetings []*meeting.Meeting
	for {
		resp, err := c.api.Database.Query(ctx, c.meetingsDBID, request)
		if err != nil {
			return nil, fmt.Errorf("error querying meetings database: %w", err)
		}
		for i := range resp.Results {
			m, err := c.snapshotMeeting(ctx, &resp.Results[i])
			if err != nil {
				c.logger.WithError(err).WithField("page_id", string(resp.Results[i].ID)).
					Warn("Skipping meeting page with unusable shape")
				continue
			}
			meetings = append(meetings, m)
		}
		if !resp.HasMore {
			return meetings, nil
		}
		request.StartCursor = resp.NextCursor
	}
}

func (c *Client) MentorName(ctx context.Context, meetingID string) (string, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(meetingID))
	if err != nil {
		return "", fmt.Errorf("error fetching meeting page %s: %w", meetingID, err)
	}
	mentorID, err := firstRelationID(page.Properties, propMentors, meetingID)
	if err != nil {
		return "", err
	}
	return c.pageName(ctx, mentorID)
}

func (c *Client) Summary(ctx context.Context, meetingID string) (string, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(meetingID))
	if err != nil {
		return "", fmt.Errorf("error fetching meeting page %s: %w", meetingID, err)
	}
	prop, ok := page.Properties[propSummary].(*notionapi.RichTextProperty)
	if !ok {
		// A missing summary is a normal record state, not a shape error.
		return "", nil
	}
	var summary string
	for _, rt := range prop.RichText {
		summary += rt.PlainText
	}
	return summary, nil
}

func (c *Client) CreateFeedback(ctx context.Context, rec *meeting.FeedbackRecord) error {
	filledAt := notionapi.Date(rec.FilledAt)
	properties := notionapi.Properties{
		"Meeting":     relationTo(rec.MeetingID),
		"Student":     relationTo(rec.StudentID),
		"Filler Name": richText("BOT"),
		"Date":        notionapi.DateProperty{Date: &notionapi.DateObject{Start: &filledAt}},
		"Meeting Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: rec.MeetingName}}},
		},
		propChatID: richText(rec.ChatID),
	}
	for i, name := range scorePropNames {
		properties[name] = notionapi.NumberProperty{Number: float64(rec.Scores[i+1])}
	}

	_, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.feedbackDBID,
		},
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("error creating feedback record for meeting %s: %w", rec.MeetingID, err)
	}
	return nil
}

func (c *Client) MarkFeedbackReceived(ctx context.Context, meetingID string) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(meetingID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propFeedbackReceived: notionapi.CheckboxProperty{Checkbox: true},
		},
	})
	if err != nil {
		return fmt.Errorf("error setting feedback-received flag on meeting %s: %w", meetingID, err)
	}
	return nil
}

// snapshotMeeting validates the page shape field by field and resolves the
// mentor's display name, producing the immutable discovery-time snapshot.
func (c *Client) snapshotMeeting(ctx context.Context, page *notionapi.Page) (*meeting.Meeting, error) {
	pageID := string(page.ID)

	name, err := titleText(page.Properties, propName, pageID)
	if err != nil {
		return nil, err
	}
	mentorID, err := firstRelationID(page.Properties, propMentors, pageID)
	if err != nil {
		return nil, err
	}
	studentID, err := firstRelationID(page.Properties, propStudent, pageID)
	if err != nil {
		return nil, err
	}
	chatID, err := rollupChatID(page.Properties, propChatID, pageID)
	if err != nil {
		return nil, err
	}
	mentorName, err := c.pageName(ctx, mentorID)
	if err != nil {
		return nil, err
	}

	m := &meeting.Meeting{
		ID:         pageID,
		Name:       name,
		MentorName: mentorName,
		StudentID:  studentID,
		ChatID:     chatID,
	}
	if date, ok := page.Properties[propDate].(*notionapi.DateProperty); ok && date.Date != nil && date.Date.Start != nil {
		m.Date = time.Time(*date.Date.Start)
	}
	return m, nil
}

func (c *Client) pageName(ctx context.Context, pageID string) (string, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return "", fmt.Errorf("error fetching page %s: %w", pageID, err)
	}
	return titleText(page.Properties, propName, pageID)
}

// --- Shape validation helpers ---

func titleText(props notionapi.Properties, key, pageID string) (string, error) {
	prop, ok := props[key].(*notionapi.TitleProperty)
	if !ok || len(prop.Title) == 0 || prop.Title[0].Text == nil {
		return "", &meeting.DataShapeError{PageID: pageID, Field: key}
	}
	return prop.Title[0].Text.Content, nil
}

func firstRelationID(props notionapi.Properties, key, pageID string) (string, error) {
	prop, ok := props[key].(*notionapi.RelationProperty)
	if !ok || len(prop.Relation) == 0 || prop.Relation[0].ID == "" {
		return "", &meeting.DataShapeError{PageID: pageID, Field: key}
	}
	return string(prop.Relation[0].ID), nil
}

func rollupChatID(props notionapi.Properties, key, pageID string) (string, error) {
	prop, ok := props[key].(*notionapi.RollupProperty)
	if !ok || prop.Rollup.Type != "array" || len(prop.Rollup.Array) == 0 {
		return "", &meeting.DataShapeError{PageID: pageID, Field: key}
	}
	number, ok := prop.Rollup.Array[0].(*notionapi.NumberProperty)
	if !ok {
		return "", &meeting.DataShapeError{PageID: pageID, Field: key}
	}
	return strconv.FormatInt(int64(number.Number), 10), nil
}

func relationTo(pageID string) notionapi.RelationProperty {
	return notionapi.RelationProperty{Relation: []notionapi.Relation{{ID: notionapi.PageID(pageID)}}}
}

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: content}}}}
}

package graph

import (
	"encoding/json"
	"errors"
)

// Account identifies a stored account used to authorize Graph calls.
type Account struct {
	// Alias identifies a stored account (e.g. "work", "personal").
	Alias    string `json:"alias" description:"account name"`
	TenantID string `json:"-" internal:"true"`
}

// CallInput is the generic tool input: an account plus endpoint arguments.
type CallInput struct {
	Account   Account        `json:"account"`
	Arguments map[string]any `json:"arguments,omitempty" description:"endpoint arguments keyed by parameter name, see tool description"`
}

// NextPageInput follows an @odata.nextLink or @odata.deltaLink.
type NextPageInput struct {
	Account Account `json:"account"`
	Link    string  `json:"link" description:"@odata.nextLink or @odata.deltaLink value from a previous result"`
}

// Response is the outcome of a successful Graph call.
type Response struct {
	StatusCode  int    `json:"statusCode"`
	ContentType string `json:"contentType,omitempty"`
	// Body holds a JSON payload exactly as received.
	Body json.RawMessage `json:"body,omitempty"`
	// Text holds a non-JSON payload (e.g. MIME content).
	Text      string `json:"text,omitempty"`
	NextLink  string `json:"nextLink,omitempty"`
	DeltaLink string `json:"deltaLink,omitempty"`
}

// Decode unmarshals the JSON payload into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("response has no JSON body")
	}
	return json.Unmarshal(r.Body, v)
}

// Profile summarises the signed-in user.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName,omitempty"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	OfficeLocation    string `json:"officeLocation,omitempty"`
}

// ProfileInput requests the signed-in user's profile.
type ProfileInput struct {
	Account Account `json:"account"`
}

// Message is a compact message summary.
type Message struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	From             string `json:"from,omitempty"`
	ReceivedDateTime string `json:"receivedDateTime,omitempty"`
	IsRead           bool   `json:"isRead,omitempty"`
	Snippet          string `json:"snippet,omitempty"`
}

type SendEmailInput struct {
	Account    Account  `json:"account"`
	To         []string `json:"to"`
	Cc         []string `json:"cc,omitempty"`
	Subject    string   `json:"subject"`
	BodyText   string   `json:"bodyText,omitempty"`
	BodyHTML   string   `json:"bodyHtml,omitempty"`
	Importance string   `json:"importance,omitempty"` // Low, Normal, High
}

type ListMailInput struct {
	Account Account `json:"account"`
	Top     int     `json:"top,omitempty" description:"number of messages to return"`
	// Folder restricts the listing to a well-known or id-addressed mail folder.
	Folder string `json:"folder,omitempty" description:"mail folder id or well-known name (inbox, sentitems, drafts)"`
	// Optional ISO8601 (RFC3339) date-time filters on received time.
	SinceISO string `json:"sinceISO,omitempty" description:"receivedDateTime >= this timestamp (inclusive)"`
	UntilISO string `json:"untilISO,omitempty" description:"receivedDateTime <= this timestamp (inclusive)"`
	// Advanced OData options. If set, these override the derived filters/order from the fields above.
	Filter  string   `json:"filter,omitempty" description:"OData $filter expression (e.g., receivedDateTime ge 2025-01-01T00:00:00Z and from/emailAddress/address eq 'alice@example.com')"`
	OrderBy []string `json:"orderBy,omitempty" description:"OData $orderby fields (e.g., ['receivedDateTime DESC'])"`
}

type ListMailOutput struct {
	Messages []Message `json:"messages,omitempty"`
}

type CalendarEvent struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	StartISO  string `json:"startISO"`
	EndISO    string `json:"endISO"`
	TimeZone  string `json:"timeZone,omitempty"`
	Location  string `json:"location,omitempty"`
	Organizer string `json:"organizer,omitempty"`
	WebLink   string `json:"webLink,omitempty"`
}

type ListEventsInput struct {
	Account Account `json:"account"`
	// List events between now and now+DaysAhead (default 7).
	DaysAhead int `json:"daysAhead,omitempty"`
	Top       int `json:"top,omitempty"`
	// Advanced OData options for filtering/sorting events.
	Filter  string   `json:"filter,omitempty" description:"OData $filter for events (e.g., subject eq 'Standup')"`
	OrderBy []string `json:"orderBy,omitempty" description:"OData $orderby fields (e.g., ['start/dateTime DESC'])"`
}

type ListEventsOutput struct {
	Events []CalendarEvent `json:"events,omitempty"`
}

type CreateEventInput struct {
	Account   Account  `json:"account"`
	Subject   string   `json:"subject"`
	StartISO  string   `json:"startISO"`
	EndISO    string   `json:"endISO"`
	TimeZone  string   `json:"timeZone,omitempty"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
	BodyText  string   `json:"bodyText,omitempty"`
	Online    bool     `json:"online,omitempty" description:"create a Teams meeting"`
}

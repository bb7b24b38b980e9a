package graph

import (
	"context"
	"fmt"
	"time"
)

// CalendarAPI covers events, calendars, calendar groups, permissions,
// reminders and scheduling of the signed-in user.
type CalendarAPI struct{ *segment }

func NewCalendarAPI(client *Client) (*CalendarAPI, error) {
	s, err := newSegment(SegmentCalendar, client, calendarEndpoints())
	if err != nil {
		return nil, err
	}
	return &CalendarAPI{segment: s}, nil
}

// List returns event occurrences between now and now+DaysAhead (default 7).
func (c *CalendarAPI) List(ctx context.Context, in *ListEventsInput) (*ListEventsOutput, error) {
	if in.DaysAhead <= 0 {
		in.DaysAhead = 7
	}
	start, end := isoNowPlus(in.DaysAhead)
	args := Args{
		"start_date_time": start,
		"end_date_time":   end,
		"orderby":         []string{"start/dateTime"},
	}
	if in.Top > 0 {
		args["top"] = in.Top
	}
	if len(in.OrderBy) > 0 {
		args["orderby"] = in.OrderBy
	}
	if in.Filter != "" {
		args["filter"] = in.Filter
	}
	resp, err := c.Call(ctx, "calendarListView", args)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Value []eventPayload `json:"value"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	out := &ListEventsOutput{}
	for i := range payload.Value {
		out.Events = append(out.Events, payload.Value[i].summary())
	}
	return out, nil
}

// Create adds an event to the default calendar.
func (c *CalendarAPI) Create(ctx context.Context, in *CreateEventInput) (*CalendarEvent, error) {
	tz := in.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	args := Args{
		"subject": in.Subject,
		"start":   map[string]any{"dateTime": in.StartISO, "timeZone": tz},
		"end":     map[string]any{"dateTime": in.EndISO, "timeZone": tz},
	}
	if in.Location != "" {
		args["location"] = map[string]any{"displayName": in.Location}
	}
	if len(in.Attendees) > 0 {
		var attendees []any
		for _, a := range nonEmpty(in.Attendees) {
			attendees = append(attendees, map[string]any{
				"emailAddress": map[string]any{"address": a},
				"type":         "required",
			})
		}
		args["attendees"] = attendees
	}
	if in.BodyText != "" {
		args["body"] = itemBody("Text", in.BodyText)
	}
	if in.Online {
		args["is_online_meeting"] = true
		args["online_meeting_provider"] = "teamsForBusiness"
	}
	resp, err := c.Call(ctx, "calendarCreateEvent", args)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	var created eventPayload
	if err := resp.Decode(&created); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	event := created.summary()
	return &event, nil
}

type eventPayload struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	WebLink string `json:"webLink"`
	Start   struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"organizer"`
}

func (e *eventPayload) summary() CalendarEvent {
	return CalendarEvent{
		ID:        e.ID,
		Subject:   e.Subject,
		StartISO:  e.Start.DateTime,
		EndISO:    e.End.DateTime,
		TimeZone:  e.Start.TimeZone,
		Location:  e.Location.DisplayName,
		Organizer: e.Organizer.EmailAddress.Address,
		WebLink:   e.WebLink,
	}
}

func isoNowPlus(days int) (start string, end string) {
	now := time.Now().UTC()
	start = now.Format(time.RFC3339)
	end = now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	return
}

func eventFields(required bool) []*Param {
	subject := body("subject", "string", "event subject")
	start := body("start", "object", `{"dateTime":"2025-01-01T09:00:00","timeZone":"UTC"}`)
	end := body("end", "object", "same shape as start")
	subject.Required, start.Required, end.Required = required, required, required
	return []*Param{
		subject, start, end,
		body("body", "object", `{"contentType":"Text|HTML","content":"..."}`),
		body("location", "object", `{"displayName":"Room 1"}`),
		body("locations", "array", "multiple locations"),
		body("attendees", "array", `[{"emailAddress":{"address":"a@b.com"},"type":"required|optional|resource"}]`),
		body("is_all_day", "boolean", "all-day event, start and end at midnight").as("isAllDay"),
		body("is_online_meeting", "boolean", "create an online meeting").as("isOnlineMeeting"),
		body("online_meeting_provider", "string", "teamsForBusiness, skypeForBusiness or skypeForConsumer").as("onlineMeetingProvider"),
		body("recurrence", "object", "patternedRecurrence: pattern and range"),
		body("show_as", "string", "free, tentative, busy, oof, workingElsewhere").as("showAs"),
		body("sensitivity", "string", "normal, personal, private or confidential"),
		body("importance", "string", "low, normal or high"),
		body("categories", "array", "category names"),
		body("is_reminder_on", "boolean", "reminder enabled").as("isReminderOn"),
		body("reminder_minutes_before_start", "integer", "reminder lead time").as("reminderMinutesBeforeStart"),
		body("allow_new_time_proposals", "boolean", "invitees may propose a new time").as("allowNewTimeProposals"),
		body("response_requested", "boolean", "request responses from attendees").as("responseRequested"),
		body("transaction_id", "string", "client idempotency id").as("transactionId"),
	}
}

func eventResponseFields(proposal bool) []*Param {
	out := []*Param{
		body("comment", "string", "text included in the response"),
		body("send_response", "boolean", "send a response to the organizer, default true").as("sendResponse"),
	}
	if proposal {
		out = append(out, body("proposed_new_time", "object", `{"start":{...},"end":{...}}`).as("proposedNewTime"))
	}
	return out
}

func viewWindow() []*Param {
	return []*Param{
		requiredQuery("start_date_time", "string", "window start, ISO 8601 e.g. 2025-01-01T00:00:00Z").as("startDateTime"),
		requiredQuery("end_date_time", "string", "window end, ISO 8601").as("endDateTime"),
	}
}

func calendarFields(required bool) []*Param {
	name := body("name", "string", "calendar name")
	name.Required = required
	return []*Param{
		name,
		body("color", "string", "auto, lightBlue, lightGreen ..."),
		body("hex_color", "string", "color as #RRGGBB").as("hexColor"),
		body("is_default_calendar", "boolean", "make this the default calendar").as("isDefaultCalendar"),
	}
}

func calendarEndpoints() []*Endpoint {
	const s = SegmentCalendar
	return []*Endpoint{
		get(s, "calendarListEvents", "/me/events", "List events in the default calendar (series masters and single instances).",
			listOptions(), one(preferTimeZone(), preferBodyType())),
		get(s, "calendarGetEvent", "/me/events/{event_id}", "Get an event.", itemOptions(), one(preferTimeZone(), preferBodyType())),
		post(s, "calendarCreateEvent", "/me/events", "Create an event in the default calendar.", eventFields(true), one(preferTimeZone())),
		patch(s, "calendarUpdateEvent", "/me/events/{event_id}", "Update an event.", eventFields(false), one(preferTimeZone())),
		del(s, "calendarDeleteEvent", "/me/events/{event_id}", "Delete an event."),
		post(s, "calendarAcceptEvent", "/me/events/{event_id}/accept", "Accept a meeting invitation.", eventResponseFields(false)),
		post(s, "calendarDeclineEvent", "/me/events/{event_id}/decline", "Decline a meeting invitation.", eventResponseFields(true)),
		post(s, "calendarTentativelyAcceptEvent", "/me/events/{event_id}/tentativelyAccept", "Tentatively accept a meeting invitation.", eventResponseFields(true)),
		post(s, "calendarCancelEvent", "/me/events/{event_id}/cancel", "Cancel a meeting (organizer only) and notify attendees.",
			one(body("comment", "string", "cancellation message"))),
		post(s, "calendarForwardEvent", "/me/events/{event_id}/forward", "Forward a meeting invitation.",
			one(requiredBody("to_recipients", "array", `[{"emailAddress":{"address":"a@b.com"}}]`).as("ToRecipients"),
				body("comment", "string", "message to recipients").as("Comment"))),
		post(s, "calendarDismissReminder", "/me/events/{event_id}/dismissReminder", "Dismiss an event reminder."),
		post(s, "calendarSnoozeReminder", "/me/events/{event_id}/snoozeReminder", "Postpone an event reminder.",
			one(requiredBody("new_reminder_time", "object", `{"dateTime":"...","timeZone":"UTC"}`).as("NewReminderTime"))),
		get(s, "calendarListReminders", "/me/reminderView(startDateTime='{start_date_time}',endDateTime='{end_date_time}')",
			"List reminders within a time window.", one(preferTimeZone())),
		get(s, "calendarListInstances", "/me/events/{event_id}/instances", "List occurrences of a recurring event within a window.",
			viewWindow(), pageOptions(), one(preferTimeZone())),

		get(s, "calendarListView", "/me/calendarView", "List event occurrences (recurrences expanded) within a window.",
			viewWindow(), pageOptions(odata("skip")), one(preferTimeZone(), preferBodyType())),
		get(s, "calendarViewDelta", "/me/calendarView/delta", "Track event changes within a window.",
			viewWindow(), one(preferTimeZone())),

		get(s, "calendarListCalendars", "/me/calendars", "List calendars.", pageOptions()),
		get(s, "calendarGetCalendar", "/me/calendars/{calendar_id}", "Get a calendar.", one(odata("select"))),
		get(s, "calendarGetDefault", "/me/calendar", "Get the default calendar.", one(odata("select"))),
		post(s, "calendarCreateCalendar", "/me/calendars", "Create a calendar.", calendarFields(true)),
		patch(s, "calendarUpdateCalendar", "/me/calendars/{calendar_id}", "Update a calendar.", calendarFields(false)),
		del(s, "calendarDeleteCalendar", "/me/calendars/{calendar_id}", "Delete a calendar."),
		get(s, "calendarListCalendarEvents", "/me/calendars/{calendar_id}/events", "List events in a calendar.",
			listOptions(), one(preferTimeZone())),
		post(s, "calendarCreateCalendarEvent", "/me/calendars/{calendar_id}/events", "Create an event in a calendar.",
			eventFields(true), one(preferTimeZone())),
		get(s, "calendarListCalendarView", "/me/calendars/{calendar_id}/calendarView", "List occurrences in a calendar within a window.",
			viewWindow(), pageOptions(), one(preferTimeZone())),

		get(s, "calendarListGroups", "/me/calendarGroups", "List calendar groups.", pageOptions()),
		post(s, "calendarCreateGroup", "/me/calendarGroups", "Create a calendar group.",
			one(requiredBody("name", "string", "group name"))),
		del(s, "calendarDeleteGroup", "/me/calendarGroups/{calendar_group_id}", "Delete a calendar group."),
		get(s, "calendarListGroupCalendars", "/me/calendarGroups/{calendar_group_id}/calendars", "List calendars in a calendar group.", pageOptions()),
		post(s, "calendarCreateGroupCalendar", "/me/calendarGroups/{calendar_group_id}/calendars", "Create a calendar in a calendar group.", calendarFields(true)),

		get(s, "calendarListPermissions", "/me/calendars/{calendar_id}/calendarPermissions", "List sharing permissions of a calendar."),
		get(s, "calendarGetPermission", "/me/calendars/{calendar_id}/calendarPermissions/{permission_id}", "Get a calendar permission."),
		post(s, "calendarCreatePermission", "/me/calendars/{calendar_id}/calendarPermissions", "Share a calendar.",
			one(requiredBody("email_address", "object", `{"name":"..","address":".."}`).as("emailAddress"),
				requiredBody("role", "string", "freeBusyRead, limitedRead, read, write, delegateWithoutPrivateEventAccess ..."),
				body("is_inside_organization", "boolean", "recipient is internal").as("isInsideOrganization"),
				body("is_removable", "boolean", "permission can be removed").as("isRemovable"))),
		patch(s, "calendarUpdatePermission", "/me/calendars/{calendar_id}/calendarPermissions/{permission_id}", "Change the role of a calendar permission.",
			one(requiredBody("role", "string", "new role"))),
		del(s, "calendarDeletePermission", "/me/calendars/{calendar_id}/calendarPermissions/{permission_id}", "Remove a calendar permission."),

		get(s, "calendarListAttachments", "/me/events/{event_id}/attachments", "List attachments of an event.", pageOptions()),
		get(s, "calendarGetAttachment", "/me/events/{event_id}/attachments/{attachment_id}", "Get an event attachment.", itemOptions()),
		post(s, "calendarAddAttachment", "/me/events/{event_id}/attachments", "Add an attachment to an event.", attachmentFields()),
		del(s, "calendarDeleteAttachment", "/me/events/{event_id}/attachments/{attachment_id}", "Delete an event attachment."),
		post(s, "calendarCreateAttachmentUploadSession", "/me/events/{event_id}/attachments/createUploadSession",
			"Create an upload session for an event attachment larger than 3 MB.", uploadSessionFields()),

		post(s, "calendarCreateEventExtension", "/me/events/{event_id}/extensions", "Add an open extension to an event.", extensionFields()),
		get(s, "calendarGetEventExtension", "/me/events/{event_id}/extensions/{extension_id}", "Get an event open extension.", one(odata("select"))),
		patch(s, "calendarUpdateEventExtension", "/me/events/{event_id}/extensions/{extension_id}", "Update an event open extension.",
			one(odataType(true, "#microsoft.graph.openTypeExtension"), spread("data", "custom properties merged into the extension"))),
		del(s, "calendarDeleteEventExtension", "/me/events/{event_id}/extensions/{extension_id}", "Delete an event open extension."),

		post(s, "calendarFindMeetingTimes", "/me/findMeetingTimes", "Suggest meeting times for attendees and constraints.",
			one(body("attendees", "array", `[{"emailAddress":{"address":".."},"type":"required"}]`),
				body("time_constraint", "object", "activityDomain and timeSlots").as("timeConstraint"),
				body("location_constraint", "object", "locations and isRequired").as("locationConstraint"),
				body("meeting_duration", "string", "ISO 8601 duration, e.g. PT1H").as("meetingDuration"),
				body("max_candidates", "integer", "maximum suggestions").as("maxCandidates"),
				body("is_organizer_optional", "boolean", "organizer need not attend").as("isOrganizerOptional"),
				body("return_suggestion_reasons", "boolean", "explain each suggestion").as("returnSuggestionReasons"),
				body("minimum_attendee_percentage", "number", "minimum confidence").as("minimumAttendeePercentage")),
			one(preferTimeZone())),
		post(s, "calendarGetSchedule", "/me/calendar/getSchedule", "Get free/busy availability of users, lists or resources.",
			one(requiredBody("schedules", "array", "SMTP addresses"),
				requiredBody("start_time", "object", `{"dateTime":"..","timeZone":"UTC"}`).as("startTime"),
				requiredBody("end_time", "object", `{"dateTime":"..","timeZone":"UTC"}`).as("endTime"),
				body("availability_view_interval", "integer", "slot length in minutes").as("availabilityViewInterval")),
			one(preferTimeZone())),
	}
}

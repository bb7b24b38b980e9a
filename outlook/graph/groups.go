package graph

// GroupsAPI covers Microsoft 365 groups: their shared calendar, conversations
// and membership.
type GroupsAPI struct{ *segment }

func NewGroupsAPI(client *Client) (*GroupsAPI, error) {
	s, err := newSegment(SegmentGroups, client, groupEndpoints())
	if err != nil {
		return nil, err
	}
	return &GroupsAPI{segment: s}, nil
}

func groupEndpoints() []*Endpoint {
	const s = SegmentGroups
	return []*Endpoint{
		get(s, "groupsList", "/groups", "List groups in the organization.", listOptions(), one(consistencyLevel())),
		get(s, "groupsGet", "/groups/{group_id}", "Get a group.", itemOptions()),
		get(s, "groupsListMine", "/me/memberOf/microsoft.graph.group", "List groups the signed-in user is a direct member of.",
			listOptions(), one(consistencyLevel())),

		get(s, "groupsListEvents", "/groups/{group_id}/events", "List events of a group calendar.", pageOptions(odata("skip")), one(preferTimeZone())),
		get(s, "groupsGetEvent", "/groups/{group_id}/events/{event_id}", "Get a group event.", itemOptions(), one(preferTimeZone())),
		post(s, "groupsCreateEvent", "/groups/{group_id}/events", "Create an event in a group calendar.", eventFields(true), one(preferTimeZone())),
		patch(s, "groupsUpdateEvent", "/groups/{group_id}/events/{event_id}", "Update a group event.", eventFields(false), one(preferTimeZone())),
		del(s, "groupsDeleteEvent", "/groups/{group_id}/events/{event_id}", "Delete a group event."),
		get(s, "groupsGetCalendar", "/groups/{group_id}/calendar", "Get the group calendar.", one(odata("select"))),
		get(s, "groupsListCalendarView", "/groups/{group_id}/calendarView", "List group event occurrences within a window.",
			viewWindow(), pageOptions(), one(preferTimeZone())),

		get(s, "groupsListConversations", "/groups/{group_id}/conversations", "List group conversations.", pageOptions()),
		get(s, "groupsGetConversation", "/groups/{group_id}/conversations/{conversation_id}", "Get a group conversation.", one(odata("select"))),
		post(s, "groupsCreateConversation", "/groups/{group_id}/conversations", "Start a conversation with a first thread and post.",
			one(requiredBody("topic", "string", "conversation topic"),
				requiredBody("threads", "array", `[{"posts":[{"body":{"contentType":"html","content":".."}}]}]`))),
		del(s, "groupsDeleteConversation", "/groups/{group_id}/conversations/{conversation_id}", "Delete a group conversation."),
		get(s, "groupsListThreads", "/groups/{group_id}/threads", "List group threads.", pageOptions()),
		get(s, "groupsGetThread", "/groups/{group_id}/threads/{thread_id}", "Get a group thread.", one(odata("select"))),
		post(s, "groupsCreateThread", "/groups/{group_id}/threads", "Start a new thread.",
			one(requiredBody("topic", "string", "thread topic"),
				requiredBody("posts", "array", `[{"body":{"contentType":"html","content":".."}}]`))),
		del(s, "groupsDeleteThread", "/groups/{group_id}/threads/{thread_id}", "Delete a group thread."),
		post(s, "groupsReplyThread", "/groups/{group_id}/threads/{thread_id}/reply", "Reply to a thread with a new post.",
			one(requiredBody("post", "object", `{"body":{"contentType":"html","content":".."}}`))),
		get(s, "groupsListPosts", "/groups/{group_id}/threads/{thread_id}/posts", "List posts of a thread.", pageOptions()),
		get(s, "groupsGetPost", "/groups/{group_id}/threads/{thread_id}/posts/{post_id}", "Get a post.", itemOptions()),
		post(s, "groupsReplyPost", "/groups/{group_id}/threads/{thread_id}/posts/{post_id}/reply", "Reply to a post.",
			one(requiredBody("post", "object", `{"body":{"contentType":"html","content":".."}}`))),
		post(s, "groupsForwardPost", "/groups/{group_id}/threads/{thread_id}/posts/{post_id}/forward", "Forward a post.",
			one(body("comment", "string", "message to recipients"),
				requiredBody("to_recipients", "array", `[{"emailAddress":{"address":".."}}]`).as("toRecipients"))),

		get(s, "groupsListMembers", "/groups/{group_id}/members", "List direct members of a group.", pageOptions(), one(consistencyLevel())),
		get(s, "groupsListOwners", "/groups/{group_id}/owners", "List owners of a group.", pageOptions()),
		post(s, "groupsSubscribeByMail", "/groups/{group_id}/subscribeByMail", "Receive group conversations by email."),
		post(s, "groupsUnsubscribeByMail", "/groups/{group_id}/unsubscribeByMail", "Stop receiving group conversations by email."),
		post(s, "groupsAddFavorite", "/groups/{group_id}/addFavorite", "Add the group to the user's favorites."),
		post(s, "groupsRemoveFavorite", "/groups/{group_id}/removeFavorite", "Remove the group from the user's favorites."),
		post(s, "groupsResetUnseenCount", "/groups/{group_id}/resetUnseenCount", "Mark all group posts as seen."),
		get(s, "groupsListAcceptedSenders", "/groups/{group_id}/acceptedSenders", "List senders allowed to post to the group."),
		get(s, "groupsListRejectedSenders", "/groups/{group_id}/rejectedSenders", "List senders blocked from posting to the group."),
	}
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateParams(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
		wantErr  bool
	}{
		{name: "static", template: "/me/messages", want: []string{}},
		{name: "single", template: "/me/messages/{message_id}", want: []string{"message_id"}},
		{name: "nested", template: "/groups/{group_id}/threads/{thread_id}/posts/{post_id}", want: []string{"group_id", "thread_id", "post_id"}},
		{name: "function", template: "/me/reminderView(startDateTime='{start_date_time}',endDateTime='{end_date_time}')", want: []string{"start_date_time", "end_date_time"}},
		{name: "relative", template: "me/messages", wantErr: true},
		{name: "unbalanced", template: "/me/messages/{message_id", wantErr: true},
		{name: "stray close", template: "/me/messages/message_id}", wantErr: true},
		{name: "invalid name", template: "/me/messages/{message-id}", wantErr: true},
		{name: "repeated", template: "/a/{id}/b/{id}", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := templateParams(tc.template)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
	}{
		{
			name:     "plain identifier verbatim",
			template: "/me/messages/{message_id}",
			values:   map[string]string{"message_id": "AAMkAGI2TQ"},
			want:     "/me/messages/AAMkAGI2TQ",
		},
		{
			name:     "slash escaped",
			template: "/me/messages/{message_id}/attachments/{attachment_id}",
			values:   map[string]string{"message_id": "AAMk/AGI=", "attachment_id": "a b"},
			want:     "/me/messages/AAMk%2FAGI=/attachments/a%20b",
		},
		{
			name:     "email kept",
			template: "/places/{room_list_email}/microsoft.graph.roomlist/rooms",
			values:   map[string]string{"room_list_email": "building1@contoso.com"},
			want:     "/places/building1@contoso.com/microsoft.graph.roomlist/rooms",
		},
		{
			name:     "function arguments",
			template: "/me/reminderView(startDateTime='{start_date_time}',endDateTime='{end_date_time}')",
			values:   map[string]string{"start_date_time": "2025-01-01T00:00:00Z", "end_date_time": "2025-01-02T00:00:00Z"},
			want:     "/me/reminderView(startDateTime='2025-01-01T00:00:00Z',endDateTime='2025-01-02T00:00:00Z')",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := expandPath(tc.template, tc.values)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := expandPath("/me/messages/{message_id}", map[string]string{})
	assert.Error(t, err)
}

func TestJoinURLKeepsEscapedSegments(t *testing.T) {
	u, err := joinURL("https://graph.microsoft.com/v1.0/", "/me/messages/AAMk%2FAGI=")
	require.NoError(t, err)
	assert.Equal(t, "https://graph.microsoft.com/v1.0/me/messages/AAMk%2FAGI=", u.String())

	_, err = joinURL("/v1.0", "/me")
	assert.Error(t, err)
}

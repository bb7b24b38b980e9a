package graph

import (
	"context"
	"fmt"
	"strings"
)

// MailAPI covers messages, mail folders, inbox rules, categories and mailbox
// settings of the signed-in user.
type MailAPI struct{ *segment }

func NewMailAPI(client *Client) (*MailAPI, error) {
	s, err := newSegment(SegmentMail, client, mailEndpoints())
	if err != nil {
		return nil, err
	}
	return &MailAPI{segment: s}, nil
}

// List returns a compact listing of recent messages, newest first unless
// OrderBy is set. SinceISO/UntilISO are ignored when Filter is given.
func (m *MailAPI) List(ctx context.Context, in *ListMailInput) (*ListMailOutput, error) {
	if in.Top == 0 {
		in.Top = 10
	}
	args := Args{"top": in.Top, "orderby": []string{"receivedDateTime DESC"}}
	if len(in.OrderBy) > 0 {
		args["orderby"] = in.OrderBy
	}
	if in.Filter != "" {
		args["filter"] = in.Filter
	} else if filter := receivedFilter(in.SinceISO, in.UntilISO); filter != "" {
		args["filter"] = filter
	}
	name := "mailListMessages"
	if in.Folder != "" {
		name = "mailListFolderMessages"
		args["folder_id"] = in.Folder
	}
	resp, err := m.Call(ctx, name, args)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Value []struct {
			ID               string `json:"id"`
			Subject          string `json:"subject"`
			ReceivedDateTime string `json:"receivedDateTime"`
			IsRead           bool   `json:"isRead"`
			BodyPreview      string `json:"bodyPreview"`
			From             struct {
				EmailAddress struct {
					Address string `json:"address"`
				} `json:"emailAddress"`
			} `json:"from"`
		} `json:"value"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	out := &ListMailOutput{}
	for i, msg := range payload.Value {
		if in.Top > 0 && i >= in.Top {
			break
		}
		out.Messages = append(out.Messages, Message{
			ID:               msg.ID,
			Subject:          msg.Subject,
			From:             msg.From.EmailAddress.Address,
			ReceivedDateTime: msg.ReceivedDateTime,
			IsRead:           msg.IsRead,
			Snippet:          msg.BodyPreview,
		})
	}
	return out, nil
}

func receivedFilter(since, until string) string {
	var parts []string
	if since != "" {
		parts = append(parts, "receivedDateTime ge "+since)
	}
	if until != "" {
		parts = append(parts, "receivedDateTime le "+until)
	}
	return strings.Join(parts, " and ")
}

// Send composes and sends a message in one call (saved to Sent Items).
func (m *MailAPI) Send(ctx context.Context, in *SendEmailInput) error {
	if len(nonEmpty(in.To)) == 0 {
		return &ValidationError{Endpoint: "mailSendMail", Missing: []string{"to"}}
	}
	msg := map[string]any{"subject": in.Subject}
	if in.BodyHTML != "" {
		msg["body"] = itemBody("HTML", in.BodyHTML)
	} else {
		msg["body"] = itemBody("Text", in.BodyText)
	}
	msg["toRecipients"] = recipients(in.To)
	if cc := recipients(in.Cc); len(cc) > 0 {
		msg["ccRecipients"] = cc
	}
	if in.Importance != "" {
		msg["importance"] = in.Importance
	}
	_, err := m.Call(ctx, "mailSendMail", Args{"message": msg, "save_to_sent_items": true})
	return err
}

func itemBody(contentType, content string) map[string]any {
	return map[string]any{"contentType": contentType, "content": content}
}

func recipients(addresses []string) []any {
	var out []any
	for _, a := range nonEmpty(addresses) {
		out = append(out, map[string]any{"emailAddress": map[string]any{"address": a}})
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func messageFields() []*Param {
	return []*Param{
		body("subject", "string", "message subject"),
		body("body", "object", `{"contentType":"Text|HTML","content":"..."}`),
		body("to_recipients", "array", `[{"emailAddress":{"address":"a@b.com"}}]`).as("toRecipients"),
		body("cc_recipients", "array", "recipients, same shape as to_recipients").as("ccRecipients"),
		body("bcc_recipients", "array", "recipients, same shape as to_recipients").as("bccRecipients"),
		body("reply_to", "array", "reply-to recipients").as("replyTo"),
		body("importance", "string", "low, normal or high"),
		body("categories", "array", "category names"),
		body("internet_message_headers", "array", `custom headers, [{"name":"x-custom","value":"v"}]`).as("internetMessageHeaders"),
	}
}

func messageUpdateFields() []*Param {
	return []*Param{
		body("subject", "string", "message subject (drafts only)"),
		body("body", "object", "message body (drafts only)"),
		body("to_recipients", "array", "recipients (drafts only)").as("toRecipients"),
		body("cc_recipients", "array", "recipients (drafts only)").as("ccRecipients"),
		body("bcc_recipients", "array", "recipients (drafts only)").as("bccRecipients"),
		body("is_read", "boolean", "read state").as("isRead"),
		body("importance", "string", "low, normal or high"),
		body("categories", "array", "category names"),
		body("flag", "object", `follow-up flag, e.g. {"flagStatus":"flagged"}`),
		body("inference_classification", "string", "focused or other").as("inferenceClassification"),
	}
}

func respondFields(withRecipients bool) []*Param {
	out := []*Param{
		body("comment", "string", "text added above the quoted message"),
		body("message", "object", "message properties to override, e.g. toRecipients"),
	}
	if withRecipients {
		out = append(out, body("to_recipients", "array", "forward recipients").as("toRecipients"))
	}
	return out
}

func destination() []*Param {
	return one(requiredBody("destination_id", "string", "destination folder id or well-known name (inbox, archive, deleteditems)").as("destinationId"))
}

func folderFields(required bool) []*Param {
	name := body("display_name", "string", "folder name").as("displayName")
	name.Required = required
	return []*Param{name, body("is_hidden", "boolean", "create as a hidden folder").as("isHidden")}
}

func attachmentFields() []*Param {
	return []*Param{
		odataType(true, "#microsoft.graph.fileAttachment, #microsoft.graph.itemAttachment or #microsoft.graph.referenceAttachment"),
		requiredBody("name", "string", "attachment name"),
		body("content_bytes", "string", "base64 content (file attachments)").as("contentBytes"),
		body("content_type", "string", "MIME type").as("contentType"),
		body("content_id", "string", "content id for inline attachments").as("contentId"),
		body("is_inline", "boolean", "inline attachment").as("isInline"),
		body("item", "object", "attached message or event (item attachments)"),
	}
}

func uploadSessionFields() []*Param {
	return one(requiredBody("attachment_item", "object", `{"attachmentType":"file","name":"a.pdf","size":1234}`).as("AttachmentItem"))
}

func ruleFields(required bool) []*Param {
	name := body("display_name", "string", "rule name").as("displayName")
	seq := body("sequence", "integer", "processing order")
	name.Required, seq.Required = required, required
	return []*Param{
		name, seq,
		body("conditions", "object", "messageRulePredicates the rule matches"),
		body("actions", "object", "messageRuleActions to apply"),
		body("exceptions", "object", "messageRulePredicates that exempt a message"),
		body("is_enabled", "boolean", "rule enabled").as("isEnabled"),
	}
}

func extensionFields() []*Param {
	return []*Param{
		odataType(true, "#microsoft.graph.openTypeExtension"),
		requiredBody("extension_name", "string", "unique extension name, e.g. Com.Contoso.Referral").as("extensionName"),
		spread("data", "custom properties merged into the extension"),
	}
}

func mailEndpoints() []*Endpoint {
	const s = SegmentMail
	return []*Endpoint{
		get(s, "mailListMessages", "/me/messages", "List messages in the signed-in user's mailbox.", listOptions(), one(preferBodyType())),
		get(s, "mailGetMessage", "/me/messages/{message_id}", "Get a message.", itemOptions(), one(preferBodyType())),
		post(s, "mailCreateDraft", "/me/messages", "Create a draft message.", messageFields()),
		patch(s, "mailUpdateMessage", "/me/messages/{message_id}", "Update message properties.", messageUpdateFields()),
		del(s, "mailDeleteMessage", "/me/messages/{message_id}", "Delete a message."),
		post(s, "mailSendDraft", "/me/messages/{message_id}/send", "Send an existing draft message."),
		post(s, "mailSendMail", "/me/sendMail", "Send a new message in one call.",
			one(requiredBody("message", "object", "message resource: subject, body, toRecipients ..."),
				body("save_to_sent_items", "boolean", "save to Sent Items, default true").as("saveToSentItems"))),
		post(s, "mailReply", "/me/messages/{message_id}/reply", "Reply to the sender of a message.", respondFields(false)),
		post(s, "mailReplyAll", "/me/messages/{message_id}/replyAll", "Reply to all recipients of a message.", respondFields(false)),
		post(s, "mailForward", "/me/messages/{message_id}/forward", "Forward a message.", respondFields(true)),
		post(s, "mailCreateReply", "/me/messages/{message_id}/createReply", "Create a draft reply.", respondFields(false)),
		post(s, "mailCreateReplyAll", "/me/messages/{message_id}/createReplyAll", "Create a draft reply-all.", respondFields(false)),
		post(s, "mailCreateForward", "/me/messages/{message_id}/createForward", "Create a draft forward.", respondFields(true)),
		post(s, "mailMoveMessage", "/me/messages/{message_id}/move", "Move a message to another folder.", destination()),
		post(s, "mailCopyMessage", "/me/messages/{message_id}/copy", "Copy a message to another folder.", destination()),
		get(s, "mailGetMimeContent", "/me/messages/{message_id}/$value", "Get the MIME content of a message."),
		get(s, "mailMessagesDelta", "/me/mailFolders/{folder_id}/messages/delta", "Track message changes in a folder.",
			one(odata("select"), odata("filter"), odata("orderby"))),

		get(s, "mailListAttachments", "/me/messages/{message_id}/attachments", "List attachments of a message.", pageOptions()),
		get(s, "mailGetAttachment", "/me/messages/{message_id}/attachments/{attachment_id}", "Get an attachment.", itemOptions()),
		post(s, "mailAddAttachment", "/me/messages/{message_id}/attachments", "Add an attachment to a draft.", attachmentFields()),
		del(s, "mailDeleteAttachment", "/me/messages/{message_id}/attachments/{attachment_id}", "Delete an attachment."),
		post(s, "mailCreateAttachmentUploadSession", "/me/messages/{message_id}/attachments/createUploadSession",
			"Create an upload session for an attachment larger than 3 MB.", uploadSessionFields()),

		get(s, "mailListFolders", "/me/mailFolders", "List mail folders.", listOptions(),
			one(query("include_hidden_folders", "boolean", "include hidden folders").as("includeHiddenFolders"))),
		get(s, "mailGetFolder", "/me/mailFolders/{folder_id}", "Get a mail folder by id or well-known name.", itemOptions()),
		post(s, "mailCreateFolder", "/me/mailFolders", "Create a top-level mail folder.", folderFields(true)),
		patch(s, "mailUpdateFolder", "/me/mailFolders/{folder_id}", "Rename a mail folder.", folderFields(true)[:1]),
		del(s, "mailDeleteFolder", "/me/mailFolders/{folder_id}", "Delete a mail folder."),
		get(s, "mailListChildFolders", "/me/mailFolders/{folder_id}/childFolders", "List child folders.", listOptions()),
		post(s, "mailCreateChildFolder", "/me/mailFolders/{folder_id}/childFolders", "Create a child folder.", folderFields(true)),
		get(s, "mailListFolderMessages", "/me/mailFolders/{folder_id}/messages", "List messages in a folder.", listOptions(), one(preferBodyType())),
		post(s, "mailCreateFolderMessage", "/me/mailFolders/{folder_id}/messages", "Create a message in a folder.", messageFields()),
		post(s, "mailMoveFolder", "/me/mailFolders/{folder_id}/move", "Move a folder.", destination()),
		post(s, "mailCopyFolder", "/me/mailFolders/{folder_id}/copy", "Copy a folder.", destination()),
		get(s, "mailFoldersDelta", "/me/mailFolders/delta", "Track mail folder changes.", one(odata("select"))),

		get(s, "mailListRules", "/me/mailFolders/inbox/messageRules", "List inbox rules."),
		get(s, "mailGetRule", "/me/mailFolders/inbox/messageRules/{rule_id}", "Get an inbox rule."),
		post(s, "mailCreateRule", "/me/mailFolders/inbox/messageRules", "Create an inbox rule.", ruleFields(true)),
		patch(s, "mailUpdateRule", "/me/mailFolders/inbox/messageRules/{rule_id}", "Update an inbox rule.", ruleFields(false)),
		del(s, "mailDeleteRule", "/me/mailFolders/inbox/messageRules/{rule_id}", "Delete an inbox rule."),

		get(s, "mailGetMailboxSettings", "/me/mailboxSettings", "Get mailbox settings.", one(odata("select"))),
		patch(s, "mailUpdateMailboxSettings", "/me/mailboxSettings", "Update mailbox settings.",
			one(body("automatic_replies_setting", "object", "automatic replies configuration").as("automaticRepliesSetting"),
				body("time_zone", "string", "preferred time zone").as("timeZone"),
				body("language", "object", `{"locale":"en-US"}`),
				body("working_hours", "object", "working hours").as("workingHours"),
				body("date_format", "string", "preferred date format").as("dateFormat"),
				body("time_format", "string", "preferred time format").as("timeFormat"),
				body("delegate_meeting_message_delivery_options", "string", "sendToDelegateAndInformationToPrincipal, sendToDelegateAndPrincipal or sendToDelegateOnly").as("delegateMeetingMessageDeliveryOptions"))),
		get(s, "mailGetSupportedTimeZones", "/me/outlook/supportedTimeZones", "List time zones supported by the mailbox server."),
		post(s, "mailGetMailTips", "/me/getMailTips", "Get mail tips for recipients.",
			one(requiredBody("email_addresses", "array", "recipient SMTP addresses").as("EmailAddresses"),
				requiredBody("mail_tips_options", "string", "comma separated: automaticReplies, mailboxFullStatus ...").as("MailTipsOptions"))),

		get(s, "mailListCategories", "/me/outlook/masterCategories", "List the user's master categories."),
		get(s, "mailGetCategory", "/me/outlook/masterCategories/{category_id}", "Get a category."),
		post(s, "mailCreateCategory", "/me/outlook/masterCategories", "Create a category.",
			one(requiredBody("display_name", "string", "category name").as("displayName"),
				body("color", "string", "preset0 .. preset24 or none"))),
		patch(s, "mailUpdateCategory", "/me/outlook/masterCategories/{category_id}", "Change a category color.",
			one(requiredBody("color", "string", "preset0 .. preset24 or none"))),
		del(s, "mailDeleteCategory", "/me/outlook/masterCategories/{category_id}", "Delete a category."),

		get(s, "mailListFocusedOverrides", "/me/inferenceClassification/overrides", "List Focused Inbox sender overrides."),
		post(s, "mailCreateFocusedOverride", "/me/inferenceClassification/overrides", "Always classify a sender as focused or other.",
			one(requiredBody("classify_as", "string", "focused or other").as("classifyAs"),
				requiredBody("sender_email_address", "object", `{"name":"..","address":".."}`).as("senderEmailAddress"))),
		del(s, "mailDeleteFocusedOverride", "/me/inferenceClassification/overrides/{override_id}", "Delete a Focused Inbox override."),

		post(s, "mailCreateMessageExtension", "/me/messages/{message_id}/extensions", "Add an open extension to a message.", extensionFields()),
		get(s, "mailGetMessageExtension", "/me/messages/{message_id}/extensions/{extension_id}", "Get a message open extension.", one(odata("select"))),
		patch(s, "mailUpdateMessageExtension", "/me/messages/{message_id}/extensions/{extension_id}", "Update a message open extension.",
			one(odataType(true, "#microsoft.graph.openTypeExtension"), spread("data", "custom properties merged into the extension"))),
		del(s, "mailDeleteMessageExtension", "/me/messages/{message_id}/extensions/{extension_id}", "Delete a message open extension."),
	}
}

package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
	"github.com/viant/outlook-toolbox/outlook/graph"
	"go.uber.org/zap"
)

//go:embed tools/endpoint.md
var endpointPreamble string

//go:embed tools/outlookListMail.md
var outlookListMailDesc string

//go:embed tools/outlookSendMail.md
var outlookSendMailDesc string

//go:embed tools/outlookListEvents.md
var outlookListEventsDesc string

//go:embed tools/outlookCreateEvent.md
var outlookCreateEventDesc string

//go:embed tools/outlookWhoAmI.md
var outlookWhoAmIDesc string

//go:embed tools/outlookNextPage.md
var outlookNextPageDesc string

// catalog lists the endpoint tools; it needs no credentials.
func catalog() ([]*graph.Endpoint, error) {
	app, err := graph.NewApp(graph.NewClient(nil), nil)
	if err != nil {
		return nil, err
	}
	return app.Endpoints(), nil
}

func endpointDescription(e *graph.Endpoint) string {
	return strings.TrimSpace(endpointPreamble) + "\n\n" + e.Usage()
}

// needsLogin reports whether account has no usable token. Without a stored
// auth record no silent login is possible, so the token preflight is skipped.
func needsLogin(ctx context.Context, svc *Service, account *graph.Account) bool {
	mgr := svc.GraphManager()
	if !mgr.HasAuthRecord(ctx, account.Alias) {
		return true
	}
	return mgr.NeedsInteractive(ctx, account.Alias, account.TenantID, graph.DefaultScopes())
}

func registerTools(base *protoserver.DefaultHandler, h *Handler) error {
	svc := h.service
	ops := h.ops

	// Non-blocking URL elicitation pointing at the device page of a pending login.
	elicitLogin := func(pend *PendingAuth) {
		if ops == nil || !ops.Implements(schema.MethodElicitationCreate) {
			return
		}
		loginURL := svc.DeviceLoginURL(pend)
		go func() {
			ctx2, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_, _ = ops.Elicit(ctx2, &jsonrpc.TypedRequest[*schema.ElicitRequest]{Request: &schema.ElicitRequest{
				Params: schema.ElicitRequestParams{ElicitationId: pend.UUID, Message: "Sign in to Outlook", Mode: string(schema.ElicitRequestParamsModeUrl), Url: loginURL},
			}})
		}()
	}

	// authorize resolves the account's App, starting a device login when no
	// usable token exists.
	authorize := func(ctx context.Context, account *graph.Account) (*graph.App, *schema.CallToolResult, *jsonrpc.Error) {
		if strings.TrimSpace(account.Alias) == "" {
			_, rpcErr := buildErrorResult("account.alias is required")
			return nil, nil, rpcErr
		}
		if account.TenantID == "" {
			account.TenantID = svc.TenantID()
		}
		if needsLogin(ctx, svc, account) {
			pend := svc.StartLogin(ctx, account.Alias, account.TenantID)
			elicitLogin(pend)
			return nil, signInResult(svc, pend), nil
		}
		app, err := svc.App(ctx, account)
		if err != nil {
			result, rpcErr := toolFailure(svc, err)
			return nil, result, rpcErr
		}
		return app, nil, nil
	}

	endpoints, err := catalog()
	if err != nil {
		return err
	}
	for _, e := range endpoints {
		if !svc.Config().segmentEnabled(e.Segment) {
			continue
		}
		name := e.Name
		if err := protoserver.RegisterTool[*graph.CallInput, *graph.Response](base.Registry, name, endpointDescription(e), func(ctx context.Context, in *graph.CallInput) (*schema.CallToolResult, *jsonrpc.Error) {
			app, result, rpcErr := authorize(ctx, &in.Account)
			if app == nil {
				return result, rpcErr
			}
			resp, err := app.Call(ctx, name, in.Arguments)
			if err != nil {
				return toolFailure(svc, err)
			}
			return responseResult(svc, resp)
		}); err != nil {
			return err
		}
	}

	if err := protoserver.RegisterTool[*graph.NextPageInput, *graph.Response](base.Registry, "outlookNextPage", outlookNextPageDesc, func(ctx context.Context, in *graph.NextPageInput) (*schema.CallToolResult, *jsonrpc.Error) {
		if strings.TrimSpace(in.Link) == "" {
			return buildErrorResult("link is required")
		}
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		resp, err := app.FollowNextLink(ctx, in.Link)
		if err != nil {
			return toolFailure(svc, err)
		}
		return responseResult(svc, resp)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*graph.ProfileInput, *graph.Profile](base.Registry, "outlookWhoAmI", outlookWhoAmIDesc, func(ctx context.Context, in *graph.ProfileInput) (*schema.CallToolResult, *jsonrpc.Error) {
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		out, err := app.Profile(ctx)
		if err != nil {
			return toolFailure(svc, err)
		}
		return buildSuccessResult(svc, out)
	}); err != nil {
		return err
	}

	if err := registerMailTools(base, svc, authorize); err != nil {
		return err
	}
	return registerCalendarTools(base, svc, authorize)
}

type authorizer func(ctx context.Context, account *graph.Account) (*graph.App, *schema.CallToolResult, *jsonrpc.Error)

func registerMailTools(base *protoserver.DefaultHandler, svc *Service, authorize authorizer) error {
	if !svc.Config().segmentEnabled(graph.SegmentMail) {
		return nil
	}
	if err := protoserver.RegisterTool[*graph.ListMailInput, *graph.ListMailOutput](base.Registry, "outlookListMail", outlookListMailDesc, func(ctx context.Context, in *graph.ListMailInput) (*schema.CallToolResult, *jsonrpc.Error) {
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		out, err := app.Mail.List(ctx, in)
		if err != nil {
			return toolFailure(svc, err)
		}
		return buildSuccessResult(svc, out)
	}); err != nil {
		return err
	}

	return protoserver.RegisterTool[*graph.SendEmailInput, *struct{}](base.Registry, "outlookSendMail", outlookSendMailDesc, func(ctx context.Context, in *graph.SendEmailInput) (*schema.CallToolResult, *jsonrpc.Error) {
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		if err := app.Mail.Send(ctx, in); err != nil {
			return toolFailure(svc, err)
		}
		return buildSuccessResult(svc, map[string]any{"status": "sent"})
	})
}

func registerCalendarTools(base *protoserver.DefaultHandler, svc *Service, authorize authorizer) error {
	if !svc.Config().segmentEnabled(graph.SegmentCalendar) {
		return nil
	}
	if err := protoserver.RegisterTool[*graph.ListEventsInput, *graph.ListEventsOutput](base.Registry, "outlookListEvents", outlookListEventsDesc, func(ctx context.Context, in *graph.ListEventsInput) (*schema.CallToolResult, *jsonrpc.Error) {
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		out, err := app.Calendar.List(ctx, in)
		if err != nil {
			return toolFailure(svc, err)
		}
		return buildSuccessResult(svc, out)
	}); err != nil {
		return err
	}

	return protoserver.RegisterTool[*graph.CreateEventInput, *graph.CalendarEvent](base.Registry, "outlookCreateEvent", outlookCreateEventDesc, func(ctx context.Context, in *graph.CreateEventInput) (*schema.CallToolResult, *jsonrpc.Error) {
		app, result, rpcErr := authorize(ctx, &in.Account)
		if app == nil {
			return result, rpcErr
		}
		out, err := app.Calendar.Create(ctx, in)
		if err != nil {
			return toolFailure(svc, err)
		}
		return buildSuccessResult(svc, out)
	})
}

// Helpers
func buildErrorResult(message string) (*schema.CallToolResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.InvalidParams, message, nil)
}

func buildSuccessResult(service *Service, payload any) (*schema.CallToolResult, *jsonrpc.Error) {
	if service.UseTextField() {
		b, _ := json.Marshal(payload)
		return &schema.CallToolResult{Content: []schema.CallToolResultContentElem{{Type: "text", Text: string(b)}}}, nil
	}
	return &schema.CallToolResult{StructuredContent: map[string]any{"result": payload}}, nil
}

// responseResult passes a Graph payload through untouched in text mode.
func responseResult(service *Service, resp *graph.Response) (*schema.CallToolResult, *jsonrpc.Error) {
	if !service.UseTextField() {
		return buildSuccessResult(service, resp)
	}
	text := resp.Text
	if len(resp.Body) > 0 {
		text = string(resp.Body)
	}
	if text == "" {
		text = fmt.Sprintf(`{"statusCode":%d}`, resp.StatusCode)
	}
	return &schema.CallToolResult{Content: []schema.CallToolResultContentElem{{Type: "text", Text: text}}}, nil
}

func buildToolErrorResult(service *Service, message string) *schema.CallToolResult {
	isErr := true
	if service.UseTextField() {
		return &schema.CallToolResult{IsError: &isErr, Content: []schema.CallToolResultContentElem{{Type: "text", Text: message}}}
	}
	return &schema.CallToolResult{IsError: &isErr, StructuredContent: map[string]any{"error": message}}
}

// toolFailure maps argument problems to invalid params and Graph failures to
// an error result the model can read.
func toolFailure(service *Service, err error) (*schema.CallToolResult, *jsonrpc.Error) {
	var verr *graph.ValidationError
	if errors.As(err, &verr) || errors.Is(err, graph.ErrUnknownEndpoint) {
		return buildErrorResult(err.Error())
	}
	service.Logger().Debug("tool call failed", zap.Int("status", graph.StatusCode(err)), zap.Error(err))
	if code := graph.StatusCode(err); code != 0 {
		message := fmt.Sprintf("graph returned status %d", code)
		if body := graph.ErrorBody(err); body != "" {
			message += ": " + body
		}
		if graph.IsUnauthorized(err) {
			message += " (check that the app registration grants the permission this endpoint needs)"
		}
		return buildToolErrorResult(service, message), nil
	}
	return buildToolErrorResult(service, err.Error()), nil
}

func signInResult(service *Service, pend *PendingAuth) *schema.CallToolResult {
	message := fmt.Sprintf("sign-in required for account %q: open %s, complete the device login, then retry", pend.Alias, service.DeviceLoginURL(pend))
	return buildToolErrorResult(service, message)
}

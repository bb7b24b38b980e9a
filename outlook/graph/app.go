package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// App aggregates the Outlook API segments over one shared Client.
type App struct {
	Mail     *MailAPI
	Calendar *CalendarAPI
	Groups   *GroupsAPI
	Places   *PlacesAPI

	client  *Client
	sdk     *msgraphsdk.GraphServiceClient
	catalog *Catalog
}

// NewApp builds every segment over client. sdk is optional; when nil Profile
// falls back to a plain REST call.
func NewApp(client *Client, sdk *msgraphsdk.GraphServiceClient) (*App, error) {
	if client == nil {
		return nil, errors.New("graph client was nil")
	}
	app := &App{client: client, sdk: sdk}
	var err error
	if app.Mail, err = NewMailAPI(client); err != nil {
		return nil, err
	}
	if app.Calendar, err = NewCalendarAPI(client); err != nil {
		return nil, err
	}
	if app.Groups, err = NewGroupsAPI(client); err != nil {
		return nil, err
	}
	if app.Places, err = NewPlacesAPI(client); err != nil {
		return nil, err
	}
	app.catalog, err = NewCatalog(app.Mail.Endpoints(), app.Calendar.Endpoints(), app.Groups.Endpoints(), app.Places.Endpoints())
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Endpoints returns every endpoint of every segment.
func (a *App) Endpoints() []*Endpoint { return a.catalog.Endpoints() }

// Endpoint returns an endpoint by tool name.
func (a *App) Endpoint(name string) (*Endpoint, bool) { return a.catalog.Lookup(name) }

// Call validates args and invokes the named endpoint.
func (a *App) Call(ctx context.Context, name string, args Args) (*Response, error) {
	e, ok := a.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEndpoint, name)
	}
	return a.client.Call(ctx, e, args)
}

// FollowNextLink fetches the next page of a collection response.
func (a *App) FollowNextLink(ctx context.Context, link string) (*Response, error) {
	return a.client.FollowNextLink(ctx, link)
}

// Profile returns the signed-in user.
func (a *App) Profile(ctx context.Context) (*Profile, error) {
	if a.sdk == nil {
		return a.restProfile(ctx)
	}
	user, err := a.sdk.Me().Get(ctx, nil)
	if err != nil {
		var odataErr *odataerrors.ODataError
		if errors.As(err, &odataErr) && odataErr.GetErrorEscaped() != nil {
			main := odataErr.GetErrorEscaped()
			return nil, fmt.Errorf("get profile: %v: %v: %w", ptrVal(main.GetCode()), ptrVal(main.GetMessage()), err)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &Profile{
		ID:                ptrVal(user.GetId()),
		DisplayName:       ptrVal(user.GetDisplayName()),
		Mail:              ptrVal(user.GetMail()),
		UserPrincipalName: ptrVal(user.GetUserPrincipalName()),
		JobTitle:          ptrVal(user.GetJobTitle()),
		OfficeLocation:    ptrVal(user.GetOfficeLocation()),
	}, nil
}

func (a *App) restProfile(ctx context.Context) (*Profile, error) {
	query := url.Values{}
	query.Set("$select", "id,displayName,mail,userPrincipalName,jobTitle,officeLocation")
	resp, err := a.client.Get(ctx, "/me", &RequestOptions{Query: query})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile := &Profile{}
	if err := resp.Decode(profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

func ptrVal[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

package graph

import (
	"context"
	"fmt"
)

const (
	SegmentMail     = "mail"
	SegmentCalendar = "calendar"
	SegmentGroups   = "groups"
	SegmentPlaces   = "places"
)

// segment is the shared part of every API layer: the main client plus the
// endpoint table of that layer.
type segment struct {
	name      string
	client    *Client
	endpoints []*Endpoint
	byName    map[string]*Endpoint
}

func newSegment(name string, client *Client, endpoints []*Endpoint) (*segment, error) {
	s := &segment{name: name, client: client, byName: map[string]*Endpoint{}}
	for _, e := range endpoints {
		if e.Segment != name {
			return nil, fmt.Errorf("endpoint %v belongs to %v, not %v", e.Name, e.Segment, name)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.byName[e.Name]; ok {
			return nil, fmt.Errorf("duplicate endpoint %v", e.Name)
		}
		s.byName[e.Name] = e
		s.endpoints = append(s.endpoints, e)
	}
	return s, nil
}

// Name returns the segment name.
func (s *segment) Name() string { return s.name }

// Endpoints returns the segment endpoints in declaration order.
func (s *segment) Endpoints() []*Endpoint {
	return append([]*Endpoint{}, s.endpoints...)
}

// Call invokes a named endpoint of this segment.
func (s *segment) Call(ctx context.Context, name string, args Args) (*Response, error) {
	e, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%v: %w: %v", s.name, ErrUnknownEndpoint, name)
	}
	return s.client.Call(ctx, e, args)
}

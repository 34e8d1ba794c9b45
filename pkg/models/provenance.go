// Package models contains domain types for ekaya-reliability.
package models

import (
	"context"
	"fmt"
	"strings"
)

// Source records what kind of actor caused a score change.
type Source string

const (
	SourceUser   Source = "user"   // Direct edit by a person
	SourceAI     Source = "ai"     // AI analysis or an MCP client
	SourceAdmin  Source = "admin"  // Administrative review
	SourceSystem Source = "system" // Batch jobs, recalculation
)

// String returns the string representation of a Source.
func (s Source) String() string {
	return string(s)
}

// IsValid returns true if the source is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceUser, SourceAI, SourceAdmin, SourceSystem:
		return true
	default:
		return false
	}
}

// Label returns the display name shown next to a log entry.
func (s Source) Label() string {
	switch s {
	case SourceUser:
		return "User Update"
	case SourceAI:
		return "AI Analysis"
	case SourceAdmin:
		return "Admin Review"
	case SourceSystem:
		return "System Process"
	default:
		return string(s)
	}
}

// Actor identifies who performed a change. At most one of UserID and Service
// is meaningful; when neither is set the actor is the system.
type Actor struct {
	UserID  *string
	Service *string
}

// SystemActor is the actor used when nobody more specific is known.
var SystemActor = Actor{}

// UserActor returns an actor for a person.
func UserActor(userID string) Actor {
	return Actor{UserID: &userID}
}

// ServiceActor returns an actor for an automated service.
func ServiceActor(service string) Actor {
	return Actor{Service: &service}
}

// Normalize drops blank identifiers so empty strings never reach storage.
func (a Actor) Normalize() Actor {
	out := Actor{}
	if a.UserID != nil && strings.TrimSpace(*a.UserID) != "" {
		v := strings.TrimSpace(*a.UserID)
		out.UserID = &v
	}
	if a.Service != nil && strings.TrimSpace(*a.Service) != "" {
		v := strings.TrimSpace(*a.Service)
		out.Service = &v
	}
	return out
}

// Validate rejects actors naming both a user and a service.
func (a Actor) Validate() error {
	n := a.Normalize()
	if n.UserID != nil && n.Service != nil {
		return fmt.Errorf("actor_user_id and actor_service are mutually exclusive")
	}
	return nil
}

// IsSystem returns true when no user or service is named.
func (a Actor) IsSystem() bool {
	n := a.Normalize()
	return n.UserID == nil && n.Service == nil
}

// Label returns "User <id>", the service name, or "System".
func (a Actor) Label() string {
	n := a.Normalize()
	switch {
	case n.UserID != nil:
		return "User " + *n.UserID
	case n.Service != nil:
		return *n.Service
	default:
		return "System"
	}
}

// ProvenanceContext carries source and actor information through operations
// whose caller does not state them explicitly.
type ProvenanceContext struct {
	Source Source
	Actor  Actor
}

// provenanceKey is the context key for storing provenance information.
type provenanceKey struct{}

// WithProvenance returns a new context with provenance information attached.
func WithProvenance(ctx context.Context, p ProvenanceContext) context.Context {
	return context.WithValue(ctx, provenanceKey{}, p)
}

// GetProvenance retrieves provenance information from the context.
func GetProvenance(ctx context.Context) (ProvenanceContext, bool) {
	p, ok := ctx.Value(provenanceKey{}).(ProvenanceContext)
	return p, ok
}

// WithServiceProvenance marks work as performed by an automated service.
func WithServiceProvenance(ctx context.Context, source Source, service string) context.Context {
	return WithProvenance(ctx, ProvenanceContext{
		Source: source,
		Actor:  ServiceActor(service),
	})
}

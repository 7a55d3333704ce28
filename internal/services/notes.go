package services

import (
	"context"
	"fmt"
	"reflect"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// NoteService wraps the /notes namespace. A 401 here is session-sensitive
// but non-fatal: the client reports it without tearing the session down.
type NoteService struct {
	api *apiclient.Client
	log *logger.Logger
}

// List fetches the notes attached to a lead.
func (s *NoteService) List(ctx context.Context, leadID int64) Result[[]domain.Note] {
	var notes []domain.Note
	if err := s.api.Get(ctx, fmt.Sprintf("/notes?leadId=%d", leadID), &notes); err != nil {
		return Fail[[]domain.Note](err, "Failed to load notes")
	}
	return Ok(notes)
}

// Create adds a note. The payload must be an object-shaped value (struct,
// struct pointer, or map) — a bare string or other scalar is rejected
// locally without a network call.
func (s *NoteService) Create(ctx context.Context, payload any) Result[domain.Note] {
	if !isObjectPayload(payload) {
		s.log.WithField("payload_type", fmt.Sprintf("%T", payload)).
			Warn("note payload rejected before dispatch")
		return FailLocal[domain.Note]("note payload must be an object")
	}
	var created domain.Note
	if err := s.api.Post(ctx, "/notes", payload, &created); err != nil {
		return Fail[domain.Note](err, "Failed to create note")
	}
	return Ok(created)
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, id int64) Result[struct{}] {
	if err := s.api.Delete(ctx, fmt.Sprintf("/notes/%d", id), nil); err != nil {
		return Fail[struct{}](err, "Failed to delete note")
	}
	return Ok(struct{}{})
}

// isObjectPayload reports whether v serializes to a JSON object.
func isObjectPayload(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map:
		return true
	default:
		return false
	}
}

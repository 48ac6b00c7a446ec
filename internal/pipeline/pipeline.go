// Package pipeline is the entry point the CRUD layer calls on every entity
// mutation. Observe runs the synchronous half of the notification pipeline:
// diff, audit record, classification and fan-out, up through dispatch task
// submission. Only the dispatched side effects run on workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/audit"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/event"
)

// EventFanOut is the slice of the fan-out engine the pipeline needs.
type EventFanOut interface {
	FanOut(ctx context.Context, ev event.Event) error
}

// Mutation describes one entity mutation as observed by the CRUD layer.
// Before and After are field snapshots; for creations Before is nil, for
// deletions After is nil. Context carries display values (titles, names)
// captured by the caller while the referenced rows still existed.
type Mutation struct {
	Kind      domain.EntityKind
	Entity    domain.EntityRef
	Parent    *domain.EntityRef
	Member    *uuid.UUID
	ActorID   *uuid.UUID
	Before    audit.Snapshot
	After     audit.Snapshot
	Context   map[string]any
	IPAddress string
	UserAgent string
}

// Created reports whether the mutation created the entity.
func (m Mutation) Created() bool { return m.Before == nil && m.After != nil }

// Deleted reports whether the mutation deleted the entity.
func (m Mutation) Deleted() bool { return m.Before != nil && m.After == nil }

// Pipeline ties the synchronous stages together.
type Pipeline struct {
	recorder *audit.Recorder
	engine   EventFanOut
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(recorder *audit.Recorder, engine EventFanOut, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		recorder: recorder,
		engine:   engine,
		logger:   logger.With(slog.String("component", "pipeline")),
	}
}

// Observe processes one mutation: computes the field diff, records the
// audit event synchronously, classifies the change and fans out the
// resulting events. It blocks only on the audit write and on dispatch
// submission, never on notification persistence or mail.
//
// An update whose diff is empty (only skipped fields changed) records no
// audit event and emits no notifications.
func (p *Pipeline) Observe(ctx context.Context, m Mutation) error {
	change := event.Change{
		Kind:    m.Kind,
		Entity:  m.Entity,
		Parent:  m.Parent,
		Member:  m.Member,
		ActorID: m.ActorID,
		Created: m.Created(),
		Deleted: m.Deleted(),
		Context: m.Context,
	}
	if !change.Created && !change.Deleted {
		change.Diff = audit.Diff(m.Before, m.After)
		if len(change.Diff) == 0 {
			return nil
		}
	}

	events := event.Classify(change)

	p.record(ctx, m, change)

	var errs []error
	for _, ev := range events {
		if err := p.engine.FanOut(ctx, ev); err != nil {
			p.logger.Error("fan-out failed",
				"event_type", ev.Type,
				"entity_kind", ev.Subject.Kind,
				"entity_id", ev.Subject.ID,
				"error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("fan-out incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// record writes the audit row for the mutation. The write is best-effort:
// a failed audit log must never fail or roll back the mutation that
// triggered it, so storage errors are logged and swallowed here.
func (p *Pipeline) record(ctx context.Context, m Mutation, change event.Change) {
	metadata := make(map[string]any, len(m.Context)+1)
	for k, v := range m.Context {
		metadata[k] = v
	}
	if len(change.Diff) > 0 {
		metadata["changed_fields"] = audit.ChangedFields(change.Diff)
	}

	entry := audit.Entry{
		ActorID:    m.ActorID,
		Action:     action(change),
		Subject:    &m.Entity,
		Metadata:   metadata,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		BestEffort: true,
	}

	if _, err := p.recorder.Record(ctx, entry); err != nil {
		// Only entry construction can fail here; storage errors were
		// already logged and swallowed by the recorder.
		p.logger.Error("failed to record activity event",
			"action", entry.Action,
			"entity_kind", m.Entity.Kind,
			"entity_id", m.Entity.ID,
			"error", err)
	}
}

// action maps a change to its audit action, mirroring the classifier's
// tie-break order so the audit trail and the notifications agree on what
// happened.
func action(change event.Change) domain.ActivityAction {
	switch {
	case change.Created:
		switch {
		case change.Kind == domain.EntityComment:
			return domain.ActionCommentAdded
		case change.Kind == domain.EntityAttachment:
			return domain.ActionAttachmentAdded
		case change.Member != nil:
			return domain.ActionMemberAdded
		default:
			return domain.ActionCreated
		}
	case change.Deleted:
		if change.Member != nil {
			return domain.ActionMemberRemoved
		}
		return domain.ActionDeleted
	default:
		if _, ok := change.Diff["status"]; ok {
			return domain.ActionStatusChanged
		}
		if _, ok := change.Diff["priority"]; ok {
			return domain.ActionPriorityChanged
		}
		if assignee, ok := change.Diff["assignee"]; ok {
			if assignee.New != "" {
				return domain.ActionAssigned
			}
			return domain.ActionUnassigned
		}
		return domain.ActionUpdated
	}
}

package event

import "github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"

// Classify maps one entity mutation to zero or more semantic events.
//
// A single entity update fires at most one of status_changed,
// priority_changed, assigned/unassigned or updated; the tie-break order is
// status > priority > assignment > generic. Creations and deletions fire
// exactly one event each. Comment and attachment creations are scoped to
// the parent entity.
func Classify(change Change) []Event {
	switch {
	case change.Created:
		return classifyCreation(change)
	case change.Deleted:
		return classifyDeletion(change)
	default:
		return classifyUpdate(change)
	}
}

func classifyCreation(change Change) []Event {
	switch change.Kind {
	case domain.EntityComment:
		return []Event{scoped(change, TypeCommentAdded)}
	case domain.EntityAttachment:
		return []Event{scoped(change, TypeAttachmentAdded)}
	}

	if change.Member != nil {
		return []Event{newEvent(change, TypeMemberAdded)}
	}

	return []Event{newEvent(change, TypeCreated)}
}

func classifyDeletion(change Change) []Event {
	if change.Member != nil {
		return []Event{newEvent(change, TypeMemberRemoved)}
	}
	return []Event{newEvent(change, TypeDeleted)}
}

func classifyUpdate(change Change) []Event {
	// Highest-priority applicable rule wins; at most one event per update.
	if _, ok := change.Diff["status"]; ok {
		return []Event{newEvent(change, TypeStatusChanged)}
	}

	if _, ok := change.Diff["priority"]; ok {
		return []Event{newEvent(change, TypePriorityChanged)}
	}

	if assignee, ok := change.Diff["assignee"]; ok {
		if assignee.New != "" {
			return []Event{newEvent(change, TypeAssigned)}
		}
		return []Event{newEvent(change, TypeUnassigned)}
	}

	if len(change.Diff) > 0 {
		return []Event{newEvent(change, TypeUpdated)}
	}

	return nil
}

func newEvent(change Change, eventType Type) Event {
	return Event{
		Type:    eventType,
		Subject: change.Entity,
		ActorID: change.ActorID,
		Member:  change.Member,
		Diff:    change.Diff,
		Context: change.Context,
	}
}

// scoped builds an event whose subject is the parent entity rather than the
// comment/attachment row itself.
func scoped(change Change, eventType Type) Event {
	event := newEvent(change, eventType)
	if change.Parent != nil {
		event.Subject = *change.Parent
	}
	return event
}

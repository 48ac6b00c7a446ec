// Package audit implements the change-detection side of the activity
// pipeline: computing field-level diffs between entity snapshots and
// recording durable ActivityEvent rows at the moment of mutation.
package audit

import "sort"

// Snapshot is the string-serialized state of an entity's tracked fields at
// one point in time. Relation fields hold the referenced identifier (empty
// when unset), so a relation change is detected by id comparison even when
// neither side has the related object loaded.
type Snapshot map[string]string

// FieldChange captures one changed field's old and new values. An empty
// string means the field was unset on that side.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Bookkeeping fields maintained automatically by the persistence layer.
// They change on every write and carry no signal, so diffs exclude them.
var skippedFields = map[string]bool{
	"id":         true,
	"pk":         true,
	"updated_at": true,
}

// Diff computes the field-level changes between two snapshots of the same
// entity. A nil before-snapshot means the entity was just created; creation
// is its own event kind, so the diff is empty rather than "every field new"
// and callers must not iterate it to detect creation.
func Diff(before, after Snapshot) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	if before == nil {
		return changes
	}

	for field, newValue := range after {
		if skippedFields[field] {
			continue
		}
		if oldValue := before[field]; oldValue != newValue {
			changes[field] = FieldChange{Old: oldValue, New: newValue}
		}
	}

	// Fields present before but absent after count as cleared.
	for field, oldValue := range before {
		if skippedFields[field] {
			continue
		}
		if _, ok := after[field]; !ok && oldValue != "" {
			changes[field] = FieldChange{Old: oldValue, New: ""}
		}
	}

	return changes
}

// ChangedFields returns the sorted names of the changed fields, suitable for
// the metadata snapshot of an audit record.
func ChangedFields(changes map[string]FieldChange) []string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

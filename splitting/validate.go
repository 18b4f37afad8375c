package splitting

import "fmt"

// InvalidReferenceError reports an assignment that names an item or person
// absent from the receipt or group. The engine itself silently produces
// zero-valued entries for unknown ids, so callers are expected to run
// ValidateReferences at the boundary and reject bad input before calculating.
type InvalidReferenceError struct {
	Kind string // "item" or "person"
	ID   string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("assignment references unknown %s id %q", e.Kind, e.ID)
}

// ValidateReferences resolves every assignment against the receipt's items
// and the group's people, returning the first unknown reference found. It
// also rejects an empty group so precondition failures surface before any
// allocation runs.
func ValidateReferences(receipt Receipt, group Group, assignments []ItemAssignments) error {
	if len(group.People) == 0 {
		return ErrEmptyGroup
	}

	itemIDs := make(map[string]struct{}, len(receipt.Items))
	for _, item := range receipt.Items {
		itemIDs[item.ID] = struct{}{}
	}
	personIDs := make(map[string]struct{}, len(group.People))
	for _, p := range group.People {
		personIDs[p.ID] = struct{}{}
	}

	for _, a := range assignments {
		if _, ok := itemIDs[a.ItemID]; !ok {
			return &InvalidReferenceError{Kind: "item", ID: a.ItemID}
		}
		for _, share := range a.Shares {
			if _, ok := personIDs[share.PersonID]; !ok {
				return &InvalidReferenceError{Kind: "person", ID: share.PersonID}
			}
		}
	}

	return nil
}

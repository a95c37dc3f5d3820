package events

// Partitions holds one entity's change events grouped by operation kind,
// each group in input order.
type Partitions struct {
	Create []ChangeEvent
	Update []ChangeEvent
	Delete []ChangeEvent
}

// Len returns the total number of events across the three groups.
func (p Partitions) Len() int {
	return len(p.Create) + len(p.Update) + len(p.Delete)
}

// Kind returns the group for the given operation kind.
func (p Partitions) Kind(k OperationKind) []ChangeEvent {
	switch k {
	case OpCreate:
		return p.Create
	case OpUpdate:
		return p.Update
	case OpDelete:
		return p.Delete
	default:
		return nil
	}
}

// Split partitions events by their op tag. An unrecognized tag aborts the
// split with an *OperationKindError.
func Split(evts []ChangeEvent) (Partitions, error) {
	var p Partitions
	for i, ev := range evts {
		kind, err := ParseOperationKind(ev.Op)
		if err != nil {
			return Partitions{}, &OperationKindError{Index: i, ID: ev.ID, Tag: ev.Op}
		}
		switch kind {
		case OpCreate:
			p.Create = append(p.Create, ev)
		case OpUpdate:
			p.Update = append(p.Update, ev)
		case OpDelete:
			p.Delete = append(p.Delete, ev)
		}
	}
	return p, nil
}

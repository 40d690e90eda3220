package dirmon

import "github.com/0xmhha/dirmon/pkg/backend"

// decodeKind maps raw operation bits to a Kind. Where several bits are set
// the most specific one wins.
func decodeKind(op backend.Op) Kind {
	switch {
	case op.Has(backend.OpOverflow):
		return Unknown
	case op.Has(backend.OpCreate):
		return Added
	case op.Has(backend.OpRenameTo):
		return RenamedNew
	case op.Has(backend.OpRenameFrom):
		return RenamedOld
	case op.Has(backend.OpRemove):
		return Removed
	case op.Has(backend.OpWrite), op.Has(backend.OpChmod):
		return Modified
	default:
		return Unknown
	}
}

// decode turns a raw change into an Event. It returns false for changes that
// only update bookkeeping.
//
// A directory the backend stopped watching, either reported explicitly or by
// the directory itself being removed, leaves the watch set so the set keeps
// matching the backend's active watches.
func (s *monitorState) decode(raw backend.RawChange) (Event, bool) {
	if raw.Op.Has(backend.OpIgnored) {
		s.forget(raw.Dir)
		return Event{}, false
	}

	ev := Event{
		Path: raw.Dir,
		Kind: decodeKind(raw.Op),
		Name: raw.Name,
	}
	if ev.Name == "" && ev.Kind == Removed {
		s.forget(raw.Dir)
	}
	return ev, true
}

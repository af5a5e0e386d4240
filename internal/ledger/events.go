package ledger

import "time"

// EventType names a state change recorded in the event log.
type EventType string

const (
	EventRoleGranted        EventType = "role.granted"
	EventRoleRevoked        EventType = "role.revoked"
	EventPaused             EventType = "system.paused"
	EventUnpaused           EventType = "system.unpaused"
	EventTokensMinted       EventType = "token.minted"
	EventTokensBurned       EventType = "token.burned"
	EventTokensTransferred  EventType = "token.transferred"
	EventAllowanceSet       EventType = "token.allowance_set"
	EventAllowanceChecked   EventType = "token.allowance_checked"
	EventDatasetRegistered  EventType = "dataset.registered"
	EventDatasetPriceSet    EventType = "dataset.price_updated"
	EventDatasetVisibility  EventType = "dataset.visibility_updated"
	EventDatasetRemoved     EventType = "dataset.removed"
	EventAccessGranted      EventType = "dataset.access_granted"
	EventLicenseGranted     EventType = "license.granted"
	EventLicenseRevoked     EventType = "license.revoked"
	EventLicenseExtended    EventType = "license.extended"
	EventPlatformFeeUpdated EventType = "platform.fee_updated"
)

// Event is one immutable record in the append-only log. Sequence numbers
// are dense and strictly increasing; external indexers page on them.
type Event struct {
	Seq     uint64
	Type    EventType
	Actor   string
	Subject string
	Payload map[string]string
	At      time.Time
}

// Observer receives committed events after the owning operation has
// released the ledger lock. Observers must not call back into mutators.
type Observer func(Event)

// emit appends an event to the in-memory log. Callers hold the ledger
// lock and have already validated the operation; emit cannot fail.
func (l *Ledger) emit(typ EventType, actor, subject string, payload map[string]string, at time.Time) Event {
	l.eventSeq++
	ev := Event{
		Seq:     l.eventSeq,
		Type:    typ,
		Actor:   actor,
		Subject: subject,
		Payload: payload,
		At:      at,
	}
	l.events = append(l.events, ev)
	l.pending = append(l.pending, ev)
	return ev
}

// EventsSince returns up to limit events with sequence numbers strictly
// greater than seq, oldest first. A limit <= 0 means no limit.
func (l *Ledger) EventsSince(seq uint64, limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq >= l.eventSeq {
		return nil
	}
	// Sequence numbers are dense, so the first match is at offset seq.
	start := int(seq)
	if start > len(l.events) {
		return nil
	}
	out := l.events[start:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	res := make([]Event, len(out))
	copy(res, out)
	return res
}

// LastEventSeq returns the sequence number of the newest event, or zero.
func (l *Ledger) LastEventSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventSeq
}

package sync

import (
	"sync"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// Phase names a sync-cycle step (spec §4.3), reported in Event.Phase so a
// caller can render progress.
type Phase int

const (
	PhasePullMetadata Phase = iota
	PhaseMerge
	PhasePullDocuments
	PhasePush
	PhasePromote
)

func (p Phase) String() string {
	switch p {
	case PhasePullMetadata:
		return "PullMetadata"
	case PhaseMerge:
		return "Merge"
	case PhasePullDocuments:
		return "PullDocuments"
	case PhasePush:
		return "Push"
	case PhasePromote:
		return "Promote"
	default:
		return "Unknown"
	}
}

// EventKind is the closed set of events a sync cycle broadcasts (spec §5
// "broadcast of change events" as a suspension point).
type EventKind int

const (
	EventMetadataChanged EventKind = iota
	EventDocumentWritten
	EventStatusChanged
	EventSyncProgress
)

// Event is one broadcast notification. Only the fields relevant to Kind
// are populated.
type Event struct {
	Kind EventKind

	DocumentId model.FileId // EventDocumentWritten

	Status string // EventStatusChanged

	Phase     Phase // EventSyncProgress
	Completed int
	Total     int
}

// Broadcaster fans a sequence of Events out to every current subscriber,
// grounded on the callback/worker-channel idiom used throughout the
// teacher's pkg/payload/transfer and pkg/content/cache packages, adapted
// from a single callback into a pub/sub since a sync cycle has multiple
// independent listeners (UI status bar, search index, etc.) rather than
// one owner.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel that receives every future event, and an
// unsubscribe function the caller must call when done listening. The
// channel is buffered so a slow subscriber cannot block a sync cycle;
// events are dropped (not blocked on) if the buffer is full.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch
	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (b *Broadcaster) emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

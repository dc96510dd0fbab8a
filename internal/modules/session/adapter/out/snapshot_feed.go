package out

import (
	"sync"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
)

const feedBuffer = 32

// MemoryFeed fans snapshots out to subscribers. Slow subscribers miss
// snapshots rather than block publishers.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.Snapshot
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: map[int]chan domain.Snapshot{}}
}

var _ sessionout.SnapshotFeed = (*MemoryFeed)(nil)

func (f *MemoryFeed) Publish(snapshot domain.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (f *MemoryFeed) Subscribe() (<-chan domain.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan domain.Snapshot, feedBuffer)
	f.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

package tasks

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/feed"

	"github.com/zeebo/blake3"
)

// Snapshot is the complete ordered task list of one owner. Each snapshot
// fully replaces the previous one.
type Snapshot struct {
	Owner  domain.Identity
	Tasks  []domain.Task
	Digest string
	At     time.Time
	// Err is set when the store could not be read. Tasks and Digest then
	// hold the last good values.
	Err error
}

// newSnapshot keeps only owner's tasks and orders them newest first. The
// store already does both; this is not the line of defense.
func newSnapshot(owner domain.Identity, ts []domain.Task, at time.Time) Snapshot {
	own := make([]domain.Task, 0, len(ts))
	for _, t := range ts {
		if t.Owner == owner {
			own = append(own, t)
		}
	}
	domain.SortTasks(own)
	return Snapshot{Owner: owner, Tasks: own, Digest: digest(own), At: at}
}

func digest(ts []domain.Task) string {
	h := blake3.New()
	var buf [8]byte
	for _, t := range ts {
		h.Write([]byte(t.ID))
		h.Write([]byte{0})
		h.Write([]byte(t.Body))
		h.Write([]byte{0})
		h.Write([]byte(string(t.Visibility)))
		binary.BigEndian.PutUint64(buf[:], uint64(t.CreatedAt.UnixMicro()))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Subscription is a live, infinite sequence of snapshots for one owner.
// A producer goroutine writes to C; Cancel stops it and closes C.
type Subscription struct {
	C <-chan Snapshot

	owner  domain.Identity
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel tears the subscription down and waits for the producer to exit.
// No snapshot is readable from C after Cancel returns. Safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the producer has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe opens a live view of owner's tasks. The first snapshot reflects
// persisted state and is sent immediately; a new full snapshot follows every
// change to owner's set. Unread snapshots are replaced by newer ones.
// The subscription ends when Cancel is called or ctx is done.
func (r *Repository) Subscribe(ctx context.Context, owner domain.Identity) (*Subscription, error) {
	if owner.IsZero() {
		return nil, ErrNoIdentity
	}
	// register before the first read so no change can fall in between
	w, err := r.store.Watch(ctx, owner)
	if err != nil {
		storeErrors.WithLabelValues("watch").Inc()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot, 1)
	sub := &Subscription{
		C:      out,
		owner:  owner,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	liveSubscriptions.Inc()
	go r.produce(ctx, sub, w, out)
	return sub, nil
}

func (r *Repository) produce(ctx context.Context, sub *Subscription, w *feed.Watch, out chan Snapshot) {
	defer func() {
		w.Close()
		select {
		case <-out:
		default:
		}
		close(out)
		liveSubscriptions.Dec()
		close(sub.done)
	}()

	var (
		last Snapshot
		sent bool
	)
	// emit reports false when the store read failed.
	emit := func() bool {
		ts, err := r.store.ListByOwner(ctx, sub.owner)
		if ctx.Err() != nil {
			return true
		}

		var snap Snapshot
		if err != nil {
			storeErrors.WithLabelValues("subscribe").Inc()
			r.log.Error("subscription reload failed", "owner", sub.owner, "error", err)
			if sent && last.Err != nil {
				// already reported, keep retrying quietly
				return false
			}
			snap = Snapshot{Owner: sub.owner, Tasks: last.Tasks, Digest: last.Digest, At: r.now(), Err: err}
			if snap.Tasks == nil {
				snap.Tasks = []domain.Task{}
			}
		} else {
			snap = newSnapshot(sub.owner, ts, r.now())
			if sent && last.Err == nil && snap.Digest == last.Digest {
				return true
			}
		}

		last = snap
		sent = true
		snapshotsSent.Inc()
		offer(ctx, out, snap)
		return snap.Err == nil
	}

	// a failed read is retried with backoff until one succeeds, so the
	// list recovers even when nothing is written
	var (
		retry   *time.Timer
		retryC  <-chan time.Time
		backoff time.Duration
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()
	schedule := func(ok bool) {
		if ok {
			backoff = 0
			if retry != nil {
				retry.Stop()
			}
			retryC = nil
			return
		}
		if backoff == 0 {
			backoff = r.retryMin
		} else {
			backoff = min(2*backoff, r.retryMax)
		}
		if retry == nil {
			retry = time.NewTimer(backoff)
		} else {
			retry.Stop()
			retry.Reset(backoff)
		}
		retryC = retry.C
	}

	schedule(emit())
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.C:
			schedule(emit())
		case <-retryC:
			retryC = nil
			schedule(emit())
		}
	}
}

// offer delivers s, replacing an unread older snapshot if there is one.
func offer(ctx context.Context, out chan Snapshot, s Snapshot) {
	for {
		select {
		case out <- s:
			return
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

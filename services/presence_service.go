package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/metrics"
	"github.com/akinalp/huddle/ws"
)

// PresencePublisher, presence:update yayın yolu. ws.Hub bunu karşılar.
type PresencePublisher interface {
	BroadcastPresence(userID string, event ws.Event)
}

type presenceEntry struct {
	status   models.PresenceStatus
	manual   models.PresenceStatus
	lastSeen time.Time
	sessions int
}

// PresenceTracker, kullanıcı başına online / away / offline durumunu bellekte tutar.
//
// Durum makinesi:
//
//	offline → online   ilk oturum bağlanınca
//	online ⇄ away      presence:status ile
//	* → offline        son oturum kapanınca veya timeout içinde heartbeat gelmezse
//
// Çoklu oturumda kullanıcı herhangi bir oturumu açıksa online sayılır.
// Yayınlar best effort'tur, kaybolan event tekrar gönderilmez.
type PresenceTracker struct {
	mu      sync.Mutex
	entries map[string]*presenceEntry

	publisher     PresencePublisher
	timeout       time.Duration
	sweepInterval time.Duration
	log           *logger.Logger
	now           func() time.Time

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewPresenceTracker, constructor. timeout genelde 3 × heartbeat aralığıdır.
func NewPresenceTracker(publisher PresencePublisher, timeout, sweepInterval time.Duration, log *logger.Logger) *PresenceTracker {
	return &PresenceTracker{
		entries:       make(map[string]*presenceEntry),
		publisher:     publisher,
		timeout:       timeout,
		sweepInterval: sweepInterval,
		log:           log,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (t *PresenceTracker) entry(userID string) *presenceEntry {
	e, ok := t.entries[userID]
	if !ok {
		e = &presenceEntry{status: models.PresenceOffline}
		t.entries[userID] = e
	}
	return e
}

// Connect, yeni bir oturumu sayar. offline'dan gelen kullanıcı online olur.
func (t *PresenceTracker) Connect(userID string) models.PresenceState {
	t.mu.Lock()
	e := t.entry(userID)
	e.sessions++
	e.lastSeen = t.now().UTC()

	changed := false
	if e.status == models.PresenceOffline {
		e.status = models.PresenceOnline
		e.manual = ""
		changed = true
	}
	state := stateOf(userID, e)
	t.mu.Unlock()

	if changed {
		t.publish(state)
	}
	return state
}

// Disconnect, bir oturumu düşer. Son oturumla birlikte kullanıcı offline olur.
func (t *PresenceTracker) Disconnect(userID string) {
	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if e.sessions > 0 {
		e.sessions--
	}

	changed := false
	if e.sessions == 0 && e.status != models.PresenceOffline {
		e.status = models.PresenceOffline
		e.manual = ""
		e.lastSeen = t.now().UTC()
		changed = true
	}
	state := stateOf(userID, e)
	t.mu.Unlock()

	if changed {
		t.publish(state)
	}
}

// Heartbeat, last_seen'i yeniler; durumu değiştirmez. Açık oturumu olup
// sweep ile offline'a düşmüş kullanıcı önceki durumuna döner.
func (t *PresenceTracker) Heartbeat(userID string) {
	t.mu.Lock()
	e := t.entry(userID)
	e.lastSeen = t.now().UTC()

	changed := false
	if e.status == models.PresenceOffline && e.sessions > 0 {
		e.status = models.PresenceOnline
		if e.manual != "" {
			e.status = e.manual
		}
		changed = true
	}
	state := stateOf(userID, e)
	t.mu.Unlock()

	if changed {
		t.publish(state)
	}
}

// SetStatus, açık durum değişikliği. Sadece online ve away kabul edilir.
func (t *PresenceTracker) SetStatus(userID, status string) error {
	s := models.PresenceStatus(status)
	if s != models.PresenceOnline && s != models.PresenceAway {
		return fmt.Errorf("%w: status must be online or away", pkg.ErrBadRequest)
	}

	t.mu.Lock()
	e := t.entry(userID)
	e.lastSeen = t.now().UTC()
	e.manual = s

	changed := e.status != s
	e.status = s
	state := stateOf(userID, e)
	t.mu.Unlock()

	if changed {
		t.publish(state)
	}
	return nil
}

// Get, verilen kullanıcıların durumunu döner. Bilinmeyen kullanıcı offline'dır.
func (t *PresenceTracker) Get(userIDs []string) []models.PresenceState {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make([]models.PresenceState, 0, len(userIDs))
	for _, id := range userIDs {
		if e, ok := t.entries[id]; ok {
			states = append(states, stateOf(id, e))
			continue
		}
		states = append(states, models.PresenceState{UserID: id, Status: models.PresenceOffline})
	}
	return states
}

// Sweep, timeout süresince heartbeat göndermeyen kullanıcıları offline yapar.
// Offline'a düşen kullanıcı ID'lerini döner.
func (t *PresenceTracker) Sweep() []string {
	now := t.now().UTC()

	t.mu.Lock()
	var swept []models.PresenceState
	for id, e := range t.entries {
		if e.status == models.PresenceOffline || now.Sub(e.lastSeen) <= t.timeout {
			continue
		}
		e.status = models.PresenceOffline
		swept = append(swept, stateOf(id, e))
	}
	t.mu.Unlock()

	ids := make([]string, 0, len(swept))
	for _, state := range swept {
		t.publish(state)
		ids = append(ids, state.UserID)
	}
	if len(ids) > 0 {
		t.log.Debug("presence sweep", zap.Int("offline", len(ids)))
	}
	return ids
}

// Start, periyodik sweep goroutine'ini başlatır.
func (t *PresenceTracker) Start() {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(t.done)

		ticker := time.NewTicker(t.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.Sweep()
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop, sweep goroutine'ini durdurur ve çıkmasını bekler.
func (t *PresenceTracker) Stop() {
	t.once.Do(func() {
		close(t.stop)
		if t.started.Load() {
			<-t.done
		}
	})
}

func (t *PresenceTracker) publish(state models.PresenceState) {
	metrics.PresenceTransitions.WithLabelValues(string(state.Status)).Inc()
	t.publisher.BroadcastPresence(state.UserID, ws.Event{
		Op:   ws.OpPresenceUpdate,
		Data: state,
	})
}

func stateOf(userID string, e *presenceEntry) models.PresenceState {
	return models.PresenceState{UserID: userID, Status: e.status, LastSeen: e.lastSeen}
}

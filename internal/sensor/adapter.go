package sensor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jamesprial/omv-mcp/internal/omv"
)

// StateUnknown is reported before the first successful poll.
const StateUnknown = "unknown"

// defaultMinRefresh is the minimum time between two status fetches; calls
// to Update inside the window are no-ops.
const defaultMinRefresh = 30 * time.Second

// Recorder receives the outcome of each poll. A nil Recorder disables
// instrumentation.
type Recorder interface {
	// ObservePoll records one completed poll. failureKind is empty on
	// success, otherwise one of the omv.Kind* labels.
	ObservePoll(ok bool, failureKind string, duration time.Duration)

	// SetAvailable records whether the sensor currently has data to serve.
	SetAvailable(available bool)
}

// Options configures a new Adapter. Zero values fall back to defaults.
type Options struct {
	// Name is the sensor display name and entity name prefix.
	Name string
	// Conditions selects the exposed condition sensors; empty means all
	// known conditions.
	Conditions []string
	// MinRefresh throttles successive Update calls.
	MinRefresh time.Duration
	// Recorder receives poll outcomes; may be nil.
	Recorder Recorder
}

// Adapter owns one OMV client and the most recent status snapshot, and
// implements the stale-but-available policy: a failed poll logs the error
// and keeps serving the previous snapshot.
//
// Update is intended to be driven by a single scheduler goroutine while the
// accessors are called from tool handlers, so the snapshot and the session
// state are guarded by a mutex.
type Adapter struct {
	client     omv.Client
	name       string
	conditions []string
	minRefresh time.Duration
	recorder   Recorder

	mu            sync.RWMutex
	snapshot      *omv.Snapshot
	authenticated bool
	lastAttempt   time.Time
	lastErr       error
}

// New returns an Adapter polling through client. The adapter starts
// unauthenticated and without a snapshot; sensors report StateUnknown until
// the first successful poll.
func New(client omv.Client, opts Options) *Adapter {
	if client == nil {
		panic("omv client must not be nil")
	}

	name := opts.Name
	if name == "" {
		name = "openmediavault"
	}
	conditions := opts.Conditions
	if len(conditions) == 0 {
		conditions = AllConditions()
	}
	minRefresh := opts.MinRefresh
	if minRefresh <= 0 {
		minRefresh = defaultMinRefresh
	}

	return &Adapter{
		client:     client,
		name:       name,
		conditions: conditions,
		minRefresh: minRefresh,
		recorder:   opts.Recorder,
	}
}

// Update performs one poll cycle: log in if the session is gone, fetch the
// status, and replace the snapshot. Client failures are logged and absorbed
// so the scheduler is never disrupted; the previous snapshot stays exposed.
// Calls within the minimum refresh window do nothing.
func (a *Adapter) Update(ctx context.Context) {
	a.update(ctx, false)
}

// Refresh is Update without the throttle, for consumer-triggered polls.
func (a *Adapter) Refresh(ctx context.Context) {
	a.update(ctx, true)
}

func (a *Adapter) update(ctx context.Context, force bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if !force && !a.lastAttempt.IsZero() && now.Sub(a.lastAttempt) < a.minRefresh {
		return
	}
	a.lastAttempt = now

	start := time.Now()
	snap, err := a.poll(ctx)
	if err != nil {
		if omv.IsAuthError(err) {
			a.authenticated = false
		}
		a.lastErr = err
		log.Printf("omv poll failed (keeping last value): %v", err)
		a.record(false, omv.FailureKind(err), time.Since(start))
		return
	}

	a.snapshot = snap
	a.lastErr = nil
	a.record(true, "", time.Since(start))
}

// poll runs login-if-needed plus one fetch. An auth failure on the fetch
// (expired session) triggers a single re-login and retry, matching the OMV
// session semantics for error codes 5000/5001.
func (a *Adapter) poll(ctx context.Context) (*omv.Snapshot, error) {
	if !a.authenticated {
		if err := a.client.Login(ctx); err != nil {
			return nil, err
		}
		a.authenticated = true
	}

	snap, err := a.client.SystemInformation(ctx)
	if err == nil {
		return snap, nil
	}
	if !omv.IsAuthError(err) {
		return nil, err
	}

	// Session expired under us. Sign back in and retry once.
	a.authenticated = false
	if lerr := a.client.Login(ctx); lerr != nil {
		return nil, fmt.Errorf("re-login: %w", lerr)
	}
	a.authenticated = true

	return a.client.SystemInformation(ctx)
}

func (a *Adapter) record(ok bool, kind string, d time.Duration) {
	if a.recorder == nil {
		return
	}
	a.recorder.ObservePoll(ok, kind, d)
	a.recorder.SetAvailable(a.snapshot != nil)
}

// Name returns the sensor display name.
func (a *Adapter) Name() string { return a.name }

// Conditions returns the monitored condition keys.
func (a *Adapter) Conditions() []string {
	out := make([]string, len(a.conditions))
	copy(out, a.conditions)
	return out
}

// Available reports whether at least one poll has succeeded, i.e. whether
// there is a snapshot to serve. It stays true across failed polls.
func (a *Adapter) Available() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot != nil
}

// State returns the primary sensor state: the value of the first monitored
// condition, or StateUnknown before the first successful poll.
func (a *Adapter) State() any {
	return a.StateOf(a.conditions[0])
}

// StateOf returns the current value of one condition, or StateUnknown when
// no snapshot exists or the condition is absent from it.
func (a *Adapter) StateOf(condition string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if v, ok := a.snapshot.Value(condition); ok {
		return v
	}
	return StateUnknown
}

// Attributes returns a copy of every field of the current snapshot, plus
// the fetch timestamp. It returns an empty map before the first successful
// poll.
func (a *Adapter) Attributes() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	attrs := make(map[string]any)
	if a.snapshot == nil {
		return attrs
	}
	for k, v := range a.snapshot.Fields {
		attrs[k] = v
	}
	attrs["fetched_at"] = a.snapshot.FetchedAt
	return attrs
}

// LastError returns the error of the most recent poll attempt, or nil if
// it succeeded. Exposed for the omv_status tool so persistent failures are
// visible to consumers without breaking the sensor state.
func (a *Adapter) LastError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Snapshot returns the current snapshot, or nil before the first
// successful poll. The snapshot is immutable; callers must not modify its
// field map.
func (a *Adapter) Snapshot() *omv.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Entity is the externally visible description of one condition sensor.
type Entity struct {
	// EntityName is "<sensor name>_<condition>".
	EntityName   string `json:"entity_name"`
	Condition    string `json:"condition"`
	FriendlyName string `json:"friendly_name"`
	Icon         string `json:"icon"`
	Unit         string `json:"unit,omitempty"`
	State        any    `json:"state"`
	Available    bool   `json:"available"`
}

// Entities returns the full list of condition sensors with their current
// values.
func (a *Adapter) Entities() []Entity {
	available := a.Available()

	entities := make([]Entity, 0, len(a.conditions))
	for _, cond := range a.conditions {
		def, _ := Lookup(cond)
		entities = append(entities, Entity{
			EntityName:   fmt.Sprintf("%s_%s", a.name, cond),
			Condition:    cond,
			FriendlyName: def.FriendlyName,
			Icon:         def.Icon,
			Unit:         def.Unit,
			State:        a.StateOf(cond),
			Available:    available,
		})
	}
	return entities
}

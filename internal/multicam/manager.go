package multicam

import (
	"sync"

	"github.com/google/uuid"
)

// Manager holds the multicam clips being edited and notifies
// subscribers of every mutation. Notification is synchronous: Notify
// returns after every listener registered at publish time has run.
type Manager struct {
	mu        sync.RWMutex
	clips     []*Clip
	assets    map[string]MediaAsset
	listeners map[int]func()
	nextID    int
}

func NewManager() *Manager {
	return &Manager{
		assets:    make(map[string]MediaAsset),
		listeners: make(map[int]func()),
	}
}

// Asset returns the metadata recorded for a media id when its angle
// was added.
func (m *Manager) Asset(mediaID string) (*MediaAsset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[mediaID]
	if !ok {
		return nil, false
	}
	return &a, true
}

// Subscribe registers a listener and returns its unsubscribe handle.
func (m *Manager) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// CreateClip builds a clip with one angle per asset, a seed switch
// point at time 0 on the first angle, and duration equal to the
// longest asset.
func (m *Manager) CreateClip(name string, assets []MediaAsset) string {
	angles := make([]Angle, len(assets))
	var maxDuration float64
	for i, asset := range assets {
		angleName := asset.Name
		if angleName == "" {
			angleName = asset.ID
		}
		angles[i] = Angle{
			ID:      uuid.NewString(),
			Name:    angleName,
			MediaID: asset.ID,
		}
		if asset.Duration > maxDuration {
			maxDuration = asset.Duration
		}
	}

	clip := &Clip{
		ID:       uuid.NewString(),
		Name:     name,
		Angles:   angles,
		Duration: maxDuration,
	}
	if len(angles) > 0 {
		clip.SwitchPoints = []SwitchPoint{{Time: 0, AngleID: angles[0].ID}}
	}

	m.mu.Lock()
	m.clips = append(m.clips, clip)
	for _, asset := range assets {
		m.assets[asset.ID] = asset
	}
	m.mu.Unlock()

	m.notify()
	return clip.ID
}

// Clip returns a copy of the clip, or false if unknown.
func (m *Manager) Clip(clipID string) (Clip, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.findLocked(clipID)
	if c == nil {
		return Clip{}, false
	}
	return copyClip(c), true
}

// Clips returns copies of all clips.
func (m *Manager) Clips() []Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Clip, len(m.clips))
	for i, c := range m.clips {
		out[i] = copyClip(c)
	}
	return out
}

// DeleteClip removes a clip. Unknown ids are a no-op.
func (m *Manager) DeleteClip(clipID string) {
	m.mu.Lock()
	kept := m.clips[:0]
	for _, c := range m.clips {
		if c.ID != clipID {
			kept = append(kept, c)
		}
	}
	m.clips = kept
	m.mu.Unlock()

	m.notify()
}

// AddAngle appends an angle for the asset and extends the clip's
// duration if the offset asset runs past it.
func (m *Manager) AddAngle(clipID string, asset MediaAsset, syncOffset float64) (string, bool) {
	m.mu.Lock()
	c := m.findLocked(clipID)
	if c == nil {
		m.mu.Unlock()
		return "", false
	}

	name := asset.Name
	if name == "" {
		name = asset.ID
	}
	angle := Angle{
		ID:         uuid.NewString(),
		Name:       name,
		MediaID:    asset.ID,
		SyncOffset: syncOffset,
	}
	c.Angles = append(c.Angles, angle)
	if d := asset.Duration + syncOffset; d > c.Duration {
		c.Duration = d
	}
	m.assets[asset.ID] = asset
	m.mu.Unlock()

	m.notify()
	return angle.ID, true
}

// RemoveAngle drops an angle and repoints its switch points at the
// first remaining angle. The last angle cannot be removed.
func (m *Manager) RemoveAngle(clipID, angleID string) bool {
	m.mu.Lock()
	c := m.findLocked(clipID)
	if c == nil || len(c.Angles) <= 1 {
		m.mu.Unlock()
		return false
	}

	kept := make([]Angle, 0, len(c.Angles)-1)
	for _, a := range c.Angles {
		if a.ID != angleID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(c.Angles) {
		m.mu.Unlock()
		return false
	}
	c.Angles = kept

	fallback := c.Angles[0].ID
	for i := range c.SwitchPoints {
		if c.SwitchPoints[i].AngleID == angleID {
			c.SwitchPoints[i].AngleID = fallback
		}
	}
	m.mu.Unlock()

	m.notify()
	return true
}

// UpdateSyncOffset sets an angle's sync offset.
func (m *Manager) UpdateSyncOffset(clipID, angleID string, syncOffset float64) bool {
	m.mu.Lock()
	c := m.findLocked(clipID)
	if c == nil {
		m.mu.Unlock()
		return false
	}

	updated := false
	for i := range c.Angles {
		if c.Angles[i].ID == angleID {
			c.Angles[i].SyncOffset = syncOffset
			updated = true
		}
	}
	m.mu.Unlock()

	if updated {
		m.notify()
	}
	return updated
}

// AddSwitchPoint records an angle switch at the given time. A switch
// already at that exact time is replaced.
func (m *Manager) AddSwitchPoint(clipID string, at float64, angleID string) bool {
	m.mu.Lock()
	c := m.findLocked(clipID)
	if c == nil || c.angleByID(angleID) == nil {
		m.mu.Unlock()
		return false
	}

	replaced := false
	for i := range c.SwitchPoints {
		if c.SwitchPoints[i].Time == at {
			c.SwitchPoints[i].AngleID = angleID
			replaced = true
			break
		}
	}
	if !replaced {
		c.SwitchPoints = append(c.SwitchPoints, SwitchPoint{Time: at, AngleID: angleID})
	}
	m.mu.Unlock()

	m.notify()
	return true
}

// RemoveSwitchPoint drops the switch at the given time. The last
// remaining switch point cannot be removed.
func (m *Manager) RemoveSwitchPoint(clipID string, at float64) bool {
	m.mu.Lock()
	c := m.findLocked(clipID)
	if c == nil {
		m.mu.Unlock()
		return false
	}

	kept := make([]SwitchPoint, 0, len(c.SwitchPoints))
	for _, sp := range c.SwitchPoints {
		if sp.Time != at {
			kept = append(kept, sp)
		}
	}
	if len(kept) == 0 || len(kept) == len(c.SwitchPoints) {
		m.mu.Unlock()
		return false
	}
	c.SwitchPoints = kept
	m.mu.Unlock()

	m.notify()
	return true
}

// ActiveAngleAt returns the angle live at the given time: the one
// selected by the latest switch point at or before it.
func (m *Manager) ActiveAngleAt(clipID string, at float64) (Angle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.findLocked(clipID)
	if c == nil || len(c.SwitchPoints) == 0 {
		return Angle{}, false
	}

	active := c.SwitchPoints[0]
	for _, sp := range c.SwitchPoints {
		if sp.Time <= at && sp.Time >= active.Time {
			active = sp
		}
	}

	angle := c.angleByID(active.AngleID)
	if angle == nil {
		return Angle{}, false
	}
	return *angle, true
}

func (m *Manager) findLocked(clipID string) *Clip {
	for _, c := range m.clips {
		if c.ID == clipID {
			return c
		}
	}
	return nil
}

func copyClip(c *Clip) Clip {
	out := *c
	out.Angles = append([]Angle(nil), c.Angles...)
	out.SwitchPoints = append([]SwitchPoint(nil), c.SwitchPoints...)
	return out
}

// Package multicam models multi-angle clips and compiles them into
// export job descriptors.
package multicam

// Angle is one camera feed within a multicam clip.
type Angle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// MediaID references the asset in the media library.
	MediaID string `json:"mediaId"`
	// SyncOffset is this angle's shift in seconds relative to the sync
	// point (0 = perfectly synced).
	SyncOffset float64 `json:"syncOffset"`
}

// SwitchPoint marks when the active angle changes.
type SwitchPoint struct {
	// Time in seconds on the multicam timeline where the switch occurs.
	Time    float64 `json:"time"`
	AngleID string  `json:"angleId"`
}

// Clip is a multi-angle edit: angles ordered by insertion, switch
// points in whatever order the editor produced them.
type Clip struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Angles       []Angle       `json:"angles"`
	SwitchPoints []SwitchPoint `json:"switchPoints"`
	// Duration is the clip's total length in seconds (longest angle
	// after sync offsets).
	Duration float64 `json:"duration"`
}

// MediaAsset carries the library metadata an angle's source needs.
type MediaAsset struct {
	ID       string
	Name     string
	FilePath string
	Width    int
	Height   int
	Duration float64
	FPS      float64
}

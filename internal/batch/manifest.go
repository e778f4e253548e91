package batch

import (
	"encoding/json"
	"os"
)

// Manifest describes one render run.
type Manifest struct {
	Skeleton        string          `json:"skeleton"`
	Motion          string          `json:"motion,omitempty"`
	RootTranslation string          `json:"root_translation"`
	Frames          []ManifestEntry `json:"frames"`
	Failed          []FailedEntry   `json:"failed,omitempty"`
}

// ManifestEntry represents one rendered frame in the output manifest.
type ManifestEntry struct {
	Frame  int          `json:"frame"`
	Image  string       `json:"image"`
	Joints []JointCoord `json:"joints"`
}

// FailedEntry records a frame that could not be solved or written.
type FailedEntry struct {
	Frame int    `json:"frame"`
	Error string `json:"error"`
}

// WriteManifest writes results into m and saves it as indented JSON.
func WriteManifest(path string, m Manifest, results []Result) error {
	m.Frames = make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if !r.Success {
			m.Failed = append(m.Failed, FailedEntry{Frame: r.Frame, Error: r.Error})
			continue
		}
		m.Frames = append(m.Frames, ManifestEntry{
			Frame:  r.Frame,
			Image:  r.Image,
			Joints: r.Joints,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

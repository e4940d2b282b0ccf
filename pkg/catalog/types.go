package catalog

import "time"

// StagingSuffix marks in-progress transfer files. The builder never lists
// them and the receiver commits by renaming them away.
const StagingSuffix = ".psync-part"

type FileEntry struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Hash       string `json:"hash"`
	ModifiedAt int64  `json:"modifiedAt"` // unix nanoseconds
}

type Catalog struct {
	Owner       string               `json:"owner"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Entries     map[string]FileEntry `json:"entries"`
}

package manifest

// DataFile describes one data file written by an upstream writer.
type DataFile struct {
	Path      string `json:"path"`
	RowCount  int64  `json:"row_count"`
	SizeBytes int64  `json:"size_bytes"`
}

// FileCommittable is what a single writer produces for one checkpoint: the
// files it finished during that checkpoint. Immutable once emitted.
type FileCommittable struct {
	CheckpointID int64      `json:"checkpoint_id"`
	Files        []DataFile `json:"files"`
}

// ManifestCommittable aggregates every FileCommittable of one checkpoint
// into the single manifest that is committed to the table store.
type ManifestCommittable struct {
	CommitUser   string     `json:"commit_user"`
	CheckpointID int64      `json:"checkpoint_id"`
	Watermark    int64      `json:"watermark"`
	Files        []DataFile `json:"files"`
}

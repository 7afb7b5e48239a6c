package artifact

const EntityArtifact = "artifact"

// Artifact is one stored file (or, for non-recursive listings, one directory
// entry) under a job's artifact namespace. FilePath is relative to the
// artifact name root; keys are content-addressed by path, never by hash.
type Artifact struct {
	JobID    string
	Name     string
	FilePath string
	// SizeBytes is -1 for directory entries produced by non-recursive
	// listings.
	SizeBytes int64
	ETag      string
	Dir       bool
}

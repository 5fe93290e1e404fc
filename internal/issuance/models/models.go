package models

import (
	"time"

	id "mintgate/pkg/domain"
)

// MemberRecord is the durable proof that a member holds a published
// artifact. Rows are written once, after a successful upload, and never
// mutated or deleted (immutable audit trail).
type MemberRecord struct {
	MemberID id.MemberID
	IssuedAt time.Time
}

// Stage tracks how far one issuance attempt progressed. Attempts are
// transient; the stage exists for logging, metrics and audit only.
type Stage string

const (
	StageGenerated Stage = "generated"
	StageUploading Stage = "uploading"
	StageUploaded  Stage = "uploaded"
	StageNotified  Stage = "notified"
	StageFailed    Stage = "failed"
)

// Attempt is the in-memory state of one pipeline run. It lives for the
// duration of the worker task and is discarded on completion or failure;
// no retry state survives a restart.
type Attempt struct {
	ID            string
	MemberID      id.MemberID
	ArtifactPath  string
	MetadataPath  string
	Stage         Stage
	TransactionID id.TransactionID
	StartedAt     time.Time
}

// Tag is a key/value string pair attached to a published transaction for
// indexing and discovery on the network.
type Tag struct {
	Name  string
	Value string
}

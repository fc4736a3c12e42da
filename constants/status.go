package constants

// DocumentStatus is the outcome of one document within a batch run.
type DocumentStatus string

const (
	DocumentPending        DocumentStatus = "PENDING"
	DocumentUploadFailed   DocumentStatus = "UPLOAD_FAILED"
	DocumentExtractFailed  DocumentStatus = "EXTRACT_FAILED"  // empty or too-short text after retries
	DocumentClassifyFailed DocumentStatus = "CLASSIFY_FAILED" // stage 1/2 error or malformed JSON
	DocumentIncomplete     DocumentStatus = "INCOMPLETE"      // required fields missing
	DocumentPersistFailed  DocumentStatus = "PERSIST_FAILED"
	DocumentSaved          DocumentStatus = "SAVED"
)

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunQueued    RunStatus = "QUEUED"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunNoFiles   RunStatus = "NO_FILES"
	RunFailed    RunStatus = "FAILED"
)

// Failed reports whether the status counts as a per-document error.
func (s DocumentStatus) Failed() bool {
	return s != DocumentSaved && s != DocumentPending
}

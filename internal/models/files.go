package models

import "time"

// FileRecord is the stored metadata of one uploaded file.
// DuplicateOf is fixed at creation and never re-pointed, even when the
// canonical record it names is later deleted.
type FileRecord struct {
	ID           string    `json:"id" bson:"id"`
	ContentHash  string    `json:"hash" bson:"hash"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	StoredName   string    `json:"fileName" bson:"fileName"`
	ContentType  string    `json:"contentType" bson:"contentType"`
	Size         int64     `json:"size" bson:"size"`
	UploadedAt   time.Time `json:"uploadDate" bson:"uploadDate"`
	DuplicateOf  *string   `json:"duplicateOf" bson:"duplicateOf,omitempty"`
}

// IsDuplicate reports whether the record points at a canonical file.
func (r FileRecord) IsDuplicate() bool {
	return r.DuplicateOf != nil
}

// FileInfo is one row of the file listing.
type FileInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
	Duplicate  bool      `json:"duplicate"`
}

type FileList struct {
	Files []FileInfo `json:"files"`
}

// UploadResult is returned by the storage service for POST /files.
type UploadResult struct {
	FileID      string     `json:"fileId"`
	Filename    string     `json:"filename"`
	Size        int64      `json:"size"`
	Duplicate   bool       `json:"duplicate"`
	DuplicateOf *string    `json:"duplicateOf"`
	Stats       Statistics `json:"stats"`
}

type FileEventType string

const (
	FileUploaded FileEventType = "uploaded"
	FileDeleted  FileEventType = "deleted"
)

// FileEvent is published on the file events stream after each mutation.
type FileEvent struct {
	Type   FileEventType `json:"type"`
	FileID string        `json:"fileId"`
	Hash   string        `json:"hash"`
	At     time.Time     `json:"at"`
}

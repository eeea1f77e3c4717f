package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FileType is the immutable kind of a file entity.
type FileType string

const (
	FileTypeFolder FileType = "folder"
	FileTypeFile   FileType = "file"
	FileTypeImage  FileType = "image"
)

// FileTypes lists every accepted entity kind.
var FileTypes = []string{
	string(FileTypeFolder),
	string(FileTypeFile),
	string(FileTypeImage),
}

// RootParentID is the sentinel parentId of entities at the top of the tree.
const RootParentID int64 = 0

// Anonymous is the caller identity of requests without a valid session.
const Anonymous int64 = 0

// FilesPerPage is the fixed page size of the listing endpoint.
const FilesPerPage = 20

// ThumbnailWidths are the pixel widths of pre-generated image derivatives.
var ThumbnailWidths = []int{500, 250, 100}

const (
	StorageTypeUnknown = iota
	StorageTypeSQL
	StorageTypeFile
	StorageTypeMemory
)

// File is a folder, a plain file or an image owned by a user.
type File struct {
	ID        int64    `db:"id" json:"id"`
	UserID    int64    `db:"user_id" json:"userId"`
	Name      string   `db:"name" json:"name"`
	Type      FileType `db:"type" json:"type"`
	IsPublic  bool     `db:"is_public" json:"isPublic"`
	ParentID  int64    `db:"parent_id" json:"parentId"`
	LocalPath string   `db:"local_path" json:"-"`
}

// IsFolder reports whether the entity can contain other entities.
func (f *File) IsFolder() bool {
	return f.Type == FileTypeFolder
}

// DerivativePath returns the blob path of the thumbnail with the given width.
func (f *File) DerivativePath(width int) string {
	return f.LocalPath + "_" + strconv.Itoa(width)
}

// FileSummary is the display projection of a file entity.
type FileSummary struct {
	ID       string   `json:"id"`
	UserID   string   `json:"userId"`
	Name     string   `json:"name"`
	Type     FileType `json:"type"`
	IsPublic bool     `json:"isPublic"`
	ParentID ParentID `json:"parentId"`
}

// Summary projects the entity for listing and show responses.
func (f *File) Summary() FileSummary {
	return FileSummary{
		ID:       strconv.FormatInt(f.ID, 10),
		UserID:   strconv.FormatInt(f.UserID, 10),
		Name:     f.Name,
		Type:     f.Type,
		IsPublic: f.IsPublic,
		ParentID: ParentID(f.ParentID),
	}
}

// ParentID renders the root as the number 0 and any folder id as a string.
// On input it accepts both forms.
type ParentID int64

// MarshalJSON implements json.Marshaler.
func (p ParentID) MarshalJSON() ([]byte, error) {
	if int64(p) == RootParentID {
		return []byte("0"), nil
	}
	return json.Marshal(strconv.FormatInt(int64(p), 10))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ParentID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = ParentID(RootParentID)
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		*p = ParentID(RootParentID)
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return &ValidationError{Err: ErrInvalidParent, Msg: "Parent not found"}
	}
	*p = ParentID(id)
	return nil
}

// CreateFileRequest is the body of POST /files.
type CreateFileRequest struct {
	Name     string   `json:"name"`
	Type     FileType `json:"type"`
	IsPublic bool     `json:"isPublic"`
	ParentID ParentID `json:"parentId"`
	Data     string   `json:"data"`
}

// VisibilityResponse is returned by the publish and unpublish endpoints.
type VisibilityResponse struct {
	ID       string `json:"id"`
	IsPublic bool   `json:"isPublic"`
}

// FileContent is the payload of a content download.
type FileContent struct {
	Name        string
	ContentType string
	Data        []byte
}

// ConnectResponse carries a freshly issued session token.
type ConnectResponse struct {
	Token string `json:"token"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// StatusResponse reports liveness of the external dependencies.
type StatusResponse struct {
	DB    bool `json:"db"`
	Redis bool `json:"redis"`
}

// StatsResponse reports entity counts.
type StatsResponse struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ThumbnailJob asks the pipeline to build derivatives of an image.
type ThumbnailJob struct {
	FileID int64
	UserID int64
}

// WelcomeJob greets a freshly registered user.
type WelcomeJob struct {
	UserID int64
}

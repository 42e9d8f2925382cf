package storage

import (
	"mime"
	"path"
	"time"

	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// Asset represents a file or directory in storage
type Asset struct {
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	IsDir       bool      `json:"isDir"`
	Mode        string    `json:"mode,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ModTime     time.Time `json:"modTime,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
}

func newAsset(URL string, object storage.Object) *Asset {
	return &Asset{
		URL:         URL,
		Name:        path.Base(url.Path(URL)),
		IsDir:       object.IsDir(),
		Mode:        object.Mode().String(),
		Size:        object.Size(),
		ModTime:     object.ModTime(),
		ContentType: contentType(URL),
	}
}

// contentType guesses the content type by extension
func contentType(URL string) string {
	if ret := mime.TypeByExtension(path.Ext(url.Path(URL))); ret != "" {
		return ret
	}
	return "application/octet-stream"
}

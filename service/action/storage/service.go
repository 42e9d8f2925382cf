// Package storage provides file system functions backed by viant/afs, so
// batch jobs can read and write any afs location (file, mem, cloud storage).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	astorage "github.com/viant/afs/storage"
	"github.com/viant/batcher/model/types"
)

// Name service name
const Name = "storage"

// Service provides file system operations using viant/afs
type Service struct {
	fs afs.Service
}

// New creates a new storage service
func New() *Service {
	return NewWithFS(afs.New())
}

// NewWithFS creates a storage service on top of fs
func NewWithFS(fs afs.Service) *Service {
	return &Service{fs: fs}
}

// Name returns the service name
func (s *Service) Name() string {
	return Name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{Name: "list", Description: "Lists assets under url. Keyword: recursive."},
		{Name: "download", Description: "Returns the content of url as string."},
		{Name: "upload", Description: "Writes content (second argument) to url, returns the uploaded asset."},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Func, error) {
	switch strings.ToLower(name) {
	case "list":
		return s.list, nil
	case "download":
		return s.download, nil
	case "upload":
		return s.upload, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) list(ctx context.Context, args *types.Args) (interface{}, error) {
	URL, err := args.String(0)
	if err != nil {
		return nil, err
	}
	options := struct {
		Recursive bool `json:"recursive"`
	}{}
	if err = args.DecodeKwargs(&options); err != nil {
		return nil, fmt.Errorf("invalid list options: %w", err)
	}
	return s.List(ctx, URL, options.Recursive)
}

func (s *Service) download(ctx context.Context, args *types.Args) (interface{}, error) {
	URL, err := args.String(0)
	if err != nil {
		return nil, err
	}
	data, err := s.Download(ctx, URL)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *Service) upload(ctx context.Context, args *types.Args) (interface{}, error) {
	URL, err := args.String(0)
	if err != nil {
		return nil, err
	}
	content, err := args.String(1)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, URL, []byte(content))
}

// List lists files and directories at the specified URL, the listed location itself is excluded
func (s *Service) List(ctx context.Context, URL string, recursive bool) ([]*Asset, error) {
	var listOptions []astorage.Option
	if recursive {
		listOptions = append(listOptions, option.NewRecursive(true))
	}
	objects, err := s.fs.List(ctx, URL, listOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects at %s: %w", URL, err)
	}
	assets := make([]*Asset, 0, len(objects))
	for i, object := range objects {
		if i == 0 && object.IsDir() && strings.TrimRight(object.URL(), "/") == strings.TrimRight(URL, "/") {
			continue
		}
		assets = append(assets, newAsset(object.URL(), object))
	}
	return assets, nil
}

// Download returns the content of URL
func (s *Service) Download(ctx context.Context, URL string) ([]byte, error) {
	object, err := s.fs.Object(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", URL, err)
	}
	if object.IsDir() {
		return nil, fmt.Errorf("cannot download directory, use list operation first: %s", URL)
	}
	data, err := s.fs.Download(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return data, nil
}

// Upload writes data to URL
func (s *Service) Upload(ctx context.Context, URL string, data []byte) (*Asset, error) {
	if URL == "" {
		return nil, fmt.Errorf("asset URL cannot be empty")
	}
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", URL, err)
	}
	object, err := s.fs.Object(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to get object for %s: %w", URL, err)
	}
	return newAsset(URL, object), nil
}

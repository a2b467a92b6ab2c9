package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	aurl "github.com/viant/afs/url"
	"github.com/viant/rpcchannel/request"
)

const fileExt = ".json"

// FileStore persists each stored request as a JSON document under baseURL. Any afs
// supported location can be used (local path, mem://, s3://, gs://).
type FileStore struct {
	baseURL string
	fs      afs.Service
}

// NewFileStore creates a store rooted at baseURL
func NewFileStore(baseURL string) *FileStore {
	return &FileStore{baseURL: baseURL, fs: afs.New()}
}

func (s *FileStore) location(id string) string {
	return aurl.Join(s.baseURL, url.PathEscape(id)+fileExt)
}

func (s *FileStore) Put(ctx context.Context, r *request.Request) error {
	if err := validate(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err = s.fs.Upload(ctx, s.location(r.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload request %s: %w", r.ID, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*request.Request, bool, error) {
	URL := s.location(id)
	if ok, _ := s.fs.Exists(ctx, URL); !ok {
		return nil, false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to download request %s: %w", id, err)
	}
	ret, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return ret, true, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	URL := s.location(id)
	if ok, _ := s.fs.Exists(ctx, URL); !ok {
		return nil
	}
	return s.fs.Delete(ctx, URL)
}

// List returns stored requests ordered by creation time.
func (s *FileStore) List(ctx context.Context) ([]*request.Request, error) {
	URLs, err := s.documents(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*request.Request, 0, len(URLs))
	for _, URL := range URLs {
		data, err := s.fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", URL, err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", URL, err)
		}
		ret = append(ret, r)
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	URLs, err := s.documents(ctx)
	if err != nil {
		return err
	}
	for _, URL := range URLs {
		if err := s.fs.Delete(ctx, URL); err != nil {
			return fmt.Errorf("failed to delete %s: %w", URL, err)
		}
	}
	return nil
}

func (s *FileStore) documents(ctx context.Context) ([]string, error) {
	if ok, _ := s.fs.Exists(ctx, s.baseURL); !ok {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}
	var ret []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), fileExt) {
			continue
		}
		ret = append(ret, object.URL())
	}
	return ret, nil
}

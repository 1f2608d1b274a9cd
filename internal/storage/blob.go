package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the path under which stored blobs are served.
const URLPrefix = "/uploads/"

// BlobStore accepts bytes and returns a URL they can be fetched from.
type BlobStore interface {
	Put(ctx context.Context, originalName string, r io.Reader) (string, error)
}

var extRegex = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,10}$`)

// LocalStore keeps blobs in a directory on disk.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := filepath.Ext(filepath.Base(originalName))
	if !extRegex.MatchString(ext) {
		ext = ""
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], strings.ToLower(ext))

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		if copyErr != nil {
			return "", fmt.Errorf("writing blob: %w", copyErr)
		}
		return "", fmt.Errorf("closing blob: %w", closeErr)
	}

	return s.baseURL + URLPrefix + name, nil
}

// Handler serves stored blobs; mount it at URLPrefix. Directories are not
// listed.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(filesOnly{http.Dir(s.dir)}))
}

// filesOnly reports directories as missing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

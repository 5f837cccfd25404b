package store

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mempirate/trawl/document"
	"github.com/mempirate/trawl/log"
	"github.com/mempirate/trawl/util"
)

const (
	// maxParallelWrites bounds the number of page files written at once.
	maxParallelWrites = 4

	pageExt = ".md"
)

// PageStore holds exported pages by file name.
type PageStore interface {
	// Names returns the names of all stored pages, sorted.
	Names() ([]string, error)

	Exists(name string) (bool, error)

	Put(name string, content io.Reader) error

	// Open returns a reader for the named page. The caller closes it.
	Open(name string) (io.ReadCloser, error)
}

// FileStore keeps every page as a markdown file in one directory.
type FileStore struct {
	log     zerolog.Logger
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		log:     log.NewLogger("store"),
		dataDir: dataDir,
	}
}

// WithLogger replaces the store's logger.
func (fs *FileStore) WithLogger(log zerolog.Logger) *FileStore {
	fs.log = log
	return fs
}

// Init creates the data directory if it does not exist yet.
func (fs *FileStore) Init() error {
	return errors.Wrap(os.MkdirAll(fs.dataDir, os.ModePerm), "failed to create data directory")
}

func (fs *FileStore) Names() ([]string, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pages")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), pageExt) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

func (fs *FileStore) Exists(name string) (bool, error) {
	_, err := os.Stat(fs.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}

	return err == nil, err
}

// Put writes the page to a temporary file first, so a failed write never
// leaves a truncated page behind.
func (fs *FileStore) Put(name string, content io.Reader) error {
	tmp, err := os.CreateTemp(fs.dataDir, "."+filepath.Base(name)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create page file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write page file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close page file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), fs.path(name)), "failed to move page file")
}

func (fs *FileStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(fs.path(name))
}

// LoadPage reads an exported page back into its metadata and markdown.
func (fs *FileStore) LoadPage(name string) (document.Metadata, string, error) {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		return document.Metadata{}, "", errors.Wrapf(err, "failed to read %s", name)
	}

	return document.ParseFrontMatter(data)
}

// StorePages writes every page as a markdown file with front matter. Writes
// run in parallel; the first error cancels the remaining ones. Pages whose
// URLs map to the same file name are kept apart by a suffix derived from
// the URL.
func (fs *FileStore) StorePages(ctx context.Context, pages []*document.Page) error {
	processed := time.Now().Format(time.RFC3339)
	names := fileNames(pages)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelWrites)

	for i, page := range pages {
		name := names[i]

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			_, content, err := page.ToMarkdown(processed)
			if err != nil {
				return errors.Wrapf(err, "failed to render %s", page.URL)
			}

			if err := fs.Put(name, bytes.NewReader(content)); err != nil {
				return errors.Wrapf(err, "failed to store %s", name)
			}

			fs.log.Debug().Str("file", name).Str("size", util.FormatBytes(int64(len(content)))).Msg("Page stored")

			return nil
		})
	}

	return eg.Wait()
}

// fileNames assigns every page a file name no other page in the batch has.
// The first page keeps its plain name.
func fileNames(pages []*document.Page) []string {
	names := make([]string, len(pages))
	taken := make(map[string]struct{}, len(pages))

	for i, page := range pages {
		name := page.FileName()
		if _, ok := taken[name]; ok {
			base := strings.TrimSuffix(name, pageExt)
			h := fnv.New32a()
			h.Write([]byte(page.URL))

			name = fmt.Sprintf("%s-%08x%s", base, h.Sum32(), pageExt)
			for n := 2; ; n++ {
				if _, ok := taken[name]; !ok {
					break
				}
				name = fmt.Sprintf("%s-%08x-%d%s", base, h.Sum32(), n, pageExt)
			}
		}

		taken[name] = struct{}{}
		names[i] = name
	}

	return names
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dataDir, filepath.Base(name))
}

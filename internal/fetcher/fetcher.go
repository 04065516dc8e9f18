// Package fetcher retrieves collector drop files (news-entry dumps) from
// local paths, HTTP(S), or FTP, and parses them into news entries.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher opens entry-dump files by URL or local path.
type Fetcher struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// New creates a Fetcher with the given HTTP and FTP sub-fetchers.
func New(httpFetcher *HTTPFetcher, ftpFetcher *FTPFetcher) *Fetcher {
	return &Fetcher{http: httpFetcher, ftp: ftpFetcher}
}

// Open returns a reader for the given source: an http(s):// or ftp:// URL,
// or anything else treated as a local file path. The caller must close the
// returned reader.
func (f *Fetcher) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return f.http.Download(ctx, source)
		case "ftp":
			return f.ftp.Download(ctx, source)
		}
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return file, nil
}

// IsXLSX reports whether the source looks like an XLSX dump. XLSX requires
// random access, so remote XLSX sources are downloaded to a temp file first.
func IsXLSX(source string) bool {
	return strings.HasSuffix(strings.ToLower(source), ".xlsx")
}

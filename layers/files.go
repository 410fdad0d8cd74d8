package layers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hermannm.dev/wrap"
)

// FileReader reads layer data files, either from a URL or from a path relative to a data directory.
type FileReader struct {
	dataDir    string
	httpClient *http.Client
}

func NewFileReader(dataDir string, httpClient *http.Client) FileReader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return FileReader{dataDir: dataDir, httpClient: httpClient}
}

func (reader FileReader) Read(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return reader.fetch(ctx, path)
	}

	data, err := os.ReadFile(filepath.Join(reader.dataDir, filepath.FromSlash(path)))
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read layer file '%s'", path)
	}
	return data, nil
}

func (reader FileReader) fetch(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to create request for layer file '%s'", url)
	}

	response, err := reader.httpClient.Do(request)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to fetch layer file '%s'", url)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching layer file '%s' returned status %d", url, response.StatusCode)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read layer file '%s'", url)
	}
	return data, nil
}

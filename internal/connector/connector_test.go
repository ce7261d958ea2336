package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// stubFetcher serves canned responses keyed by URL substring, recording every
// URL requested and every body handed out that was never closed.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	requested []string
	open      int
}

type stubResponse struct {
	body []byte
	etag string
	err  error
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string]stubResponse{}}
}

func (s *stubFetcher) on(urlFragment string, body string) {
	s.responses[urlFragment] = stubResponse{body: []byte(body)}
}

func (s *stubFetcher) onErr(urlFragment string, err error) {
	s.responses[urlFragment] = stubResponse{err: err}
}

func (s *stubFetcher) lookup(rawURL string) (stubResponse, error) {
	s.mu.Lock()
	s.requested = append(s.requested, rawURL)
	s.mu.Unlock()
	for frag, resp := range s.responses {
		if strings.Contains(rawURL, frag) {
			return resp, resp.err
		}
	}
	return stubResponse{}, eris.Errorf("stub fetcher: no response for %s", rawURL)
}

func (s *stubFetcher) newBody(body []byte) io.ReadCloser {
	s.mu.Lock()
	s.open++
	s.mu.Unlock()
	return &trackedBody{Reader: bytes.NewReader(body), fetcher: s}
}

// openBodies reports how many served bodies have not been closed yet.
func (s *stubFetcher) openBodies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

type trackedBody struct {
	*bytes.Reader
	fetcher *stubFetcher
	closed  bool
}

func (b *trackedBody) Close() error {
	b.fetcher.mu.Lock()
	defer b.fetcher.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.fetcher.open--
	}
	return nil
}

func (s *stubFetcher) Get(_ context.Context, rawURL string, _ http.Header) (io.ReadCloser, error) {
	resp, err := s.lookup(rawURL)
	if err != nil {
		return nil, err
	}
	return s.newBody(resp.body), nil
}

func (s *stubFetcher) GetJSON(_ context.Context, rawURL string, _ http.Header, out any) error {
	resp, err := s.lookup(rawURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.body, out)
}

func (s *stubFetcher) GetIfModified(_ context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	resp, err := s.lookup(rawURL)
	if err != nil {
		return nil, "", false, err
	}
	if resp.etag != "" && resp.etag == etag {
		return nil, etag, false, nil
	}
	return s.newBody(resp.body), resp.etag, true, nil
}

func (s *stubFetcher) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

func testDeps(f *stubFetcher) *Deps {
	return &Deps{Fetcher: f, Logger: zap.NewNop()}
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxDocumentSize = 1 << 20

// HTTPStore talks to the state endpoints of a partyseed server. base is the
// URL of one game, e.g. http://localhost:8080/codenames.
type HTTPStore struct {
	base   string
	client *http.Client
}

func NewHTTPStore(base string, client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPStore{
		base:   strings.TrimSuffix(base, "/"),
		client: client,
	}
}

func (s *HTTPStore) stateURL(code string) string {
	return s.base + "/" + code + "/state"
}

func (s *HTTPStore) Load(ctx context.Context, code string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.stateURL(code), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoState
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("load %s: unexpected status %s", code, resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

func (s *HTTPStore) Save(ctx context.Context, code string, doc []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.stateURL(code), bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("save %s: unexpected status %s", code, resp.Status)
	}

	return nil
}

package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/aionios/aionios/internal/domain"
)

const ipfsTimeout = 30 * time.Second

// IPFSGateway talks to an IPFS node over its HTTP API. Fetched content is
// kept in a short-lived local cache; content is immutable per hash, so the
// cache can never serve stale bytes.
type IPFSGateway struct {
	endpoint string
	client   *http.Client
	cache    *cache.Cache
}

func NewIPFSGateway(endpoint string) *IPFSGateway {
	return &IPFSGateway{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: ipfsTimeout},
		cache:    cache.New(10*time.Minute, 15*time.Minute),
	}
}

type ipfsAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (g *IPFSGateway) Upload(ctx context.Context, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "capsule")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/v0/add?cid-version=0", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "posting content to ipfs")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add returned status %d", res.StatusCode)
	}

	var added ipfsAddResponse
	if err := json.NewDecoder(res.Body).Decode(&added); err != nil {
		return "", errors.Wrap(err, "decoding ipfs add response")
	}
	if added.Hash == "" {
		return "", fmt.Errorf("ipfs add returned no hash")
	}

	g.cache.Set(added.Hash, content, cache.DefaultExpiration)
	return added.Hash, nil
}

func (g *IPFSGateway) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if cached, found := g.cache.Get(ref); found {
		return cached.([]byte), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/v0/cat?arg="+url.QueryEscape(ref), nil)
	if err != nil {
		return nil, err
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching content from ipfs")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusInternalServerError {
		return nil, domain.NotFoundError{Resource: "content"}
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs cat returned status %d", res.StatusCode)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading ipfs content")
	}

	g.cache.Set(ref, content, cache.DefaultExpiration)
	return content, nil
}

func (g *IPFSGateway) Exists(ctx context.Context, ref string) (bool, error) {
	if _, found := g.cache.Get(ref); found {
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/v0/block/stat?arg="+url.QueryEscape(ref), nil)
	if err != nil {
		return false, err
	}

	res, err := g.client.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "checking content on ipfs")
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

// MemoryContentStore is an in-process content store for tests and for
// deployments without an IPFS node. Hashes are derived from the content, so
// storage stays content-addressed.
type MemoryContentStore struct {
	mu       sync.Mutex
	contents map[string][]byte
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{contents: map[string][]byte{}}
}

func (s *MemoryContentStore) Upload(ctx context.Context, content []byte) (string, error) {
	digest := sha256.Sum256(content)
	hash := "Qm" + hex.EncodeToString(digest[:22])

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contents[hash] = append([]byte(nil), content...)
	return hash, nil
}

func (s *MemoryContentStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.contents[ref]
	if !ok {
		return nil, domain.NotFoundError{Resource: "content"}
	}
	return append([]byte(nil), content...), nil
}

func (s *MemoryContentStore) Exists(ctx context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.contents[ref]
	return ok, nil
}

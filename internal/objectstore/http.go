package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/a2-ai/dvs/internal/oid"
)

// Connect/operation timeouts mandated by spec §4.2/§5.
const (
	DefaultConnectTimeout   = 30 * time.Second
	DefaultOperationTimeout = 5 * time.Minute
)

// HTTP is a Store backed by a remote HTTP CAS server implementing the wire
// protocol of internal/server: HEAD/GET/PUT on /objects/{algo}/{hex}.
type HTTP struct {
	BaseURL string
	Token   string

	client *retryablehttp.Client
}

// NewHTTP builds an HTTP store against baseURL, optionally authorizing
// requests with a bearer token. The underlying transport retries transient
// failures the way the teacher's registry client and containers/image do.
func NewHTTP(baseURL, token string) *HTTP {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = DefaultOperationTimeout
	rc.HTTPClient.Transport = &http.Transport{
		DialContext: (&net.Dialer{Timeout: DefaultConnectTimeout}).DialContext,
	}
	return &HTTP{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, client: rc}
}

func (h *HTTP) Type() string { return "http" }

func (h *HTTP) objectURL(id oid.Oid) string {
	return fmt.Sprintf("%s/objects/%s/%s", h.BaseURL, id.Algo, id.Hex)
}

func (h *HTTP) newRequest(ctx context.Context, method, url string, body io.Reader, contentLength int64) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
	return req, nil
}

func (h *HTTP) Has(ctx context.Context, id oid.Oid) (bool, error) {
	req, err := h.newRequest(ctx, http.MethodHead, h.objectURL(id), nil, -1)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("objectstore: http HEAD %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, mapStatus(resp)
	}
}

func (h *HTTP) Get(ctx context.Context, id oid.Oid) (io.ReadCloser, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.objectURL(id), nil, -1)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("objectstore: http GET %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, mapStatus(resp)
	}
	return resp.Body, nil
}

func (h *HTTP) Put(ctx context.Context, id oid.Oid, size int64, r io.Reader) error {
	req, err := h.newRequest(ctx, http.MethodPut, h.objectURL(id), r, size)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("objectstore: http PUT %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	default:
		return mapStatus(resp)
	}
}

// mapStatus maps a non-success HTTP CAS response to the sentinel errors
// documented in spec §4.2: 404->NotFound, 401/403->Unauthorized,
// 413->TooLarge, anything else is surfaced with its body.
func mapStatus(resp *http.Response) error {
	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	default:
		if body.Error != "" {
			return fmt.Errorf("objectstore: http %s: %s", strconv.Itoa(resp.StatusCode), body.Error)
		}
		return fmt.Errorf("objectstore: http unexpected status %s", resp.Status)
	}
}

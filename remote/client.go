// Package remote defines the Storage Service RPC contract (§6) the
// orchestrator consumes, plus an HTTP implementation authenticated with a
// JWT bearer token, grounded in the teacher's SyncClient
// (models/sync_client.go) and token issuance (models/token.go).
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"storagesync/errkind"
	"storagesync/manifest"
	"storagesync/record"
	"storagesync/storageid"
	"storagesync/wire"
)

// StorageClient is the three-RPC contract the orchestrator drives (§6). A
// nil *manifest.Manifest return from GetManifestIfDifferent or
// WriteRecords(conflict) signals "no newer manifest" / "no conflict"
// respectively.
type StorageClient interface {
	// GetManifestIfDifferent returns the server's manifest iff its version
	// exceeds knownVersion, nil otherwise.
	GetManifestIfDifferent(ctx context.Context, accountKey string, knownVersion uint64) (*manifest.Manifest, error)
	// ReadRecords returns records for each requested id; missing ids are
	// silently omitted by the server, which is why callers must check the
	// returned count against len(ids) (§4.4 step 6).
	ReadRecords(ctx context.Context, accountKey string, ids []storageid.ID) ([]record.Record, error)
	// WriteRecords performs an atomic compare-and-set write. On a version
	// mismatch it returns the server's current manifest as conflict (non-nil)
	// with a nil error; ordinary transport/auth failures return an error.
	WriteRecords(ctx context.Context, accountKey string, next manifest.Manifest, inserts []record.Record, deletes []storageid.ID) (conflict *manifest.Manifest, err error)
}

// Client is the HTTP implementation of StorageClient.
type Client struct {
	baseURL    string
	jwtSecret  []byte
	httpClient *http.Client
}

// New constructs a Client. requestTimeout bounds every RPC (§5 "network
// operations carry per-call timeouts"); a timeout surfaces as
// errkind.ErrNetwork, which the orchestrator maps to RetryLater.
func New(baseURL, jwtSecret string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		jwtSecret: []byte(jwtSecret),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// claims mirrors the teacher's TokenClaims shape (models/token.go),
// narrowed to what the Storage Service needs to authorize an account's
// requests: the account key.
type claims struct {
	jwt.RegisteredClaims
	AccountKey string `json:"account_key"`
}

func (c *Client) bearerToken(accountKey string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storagesync",
			Subject:   accountKey,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		AccountKey: accountKey,
	})
	signed, err := tok.SignedString(c.jwtSecret)
	if err != nil {
		return "", serr.Wrap(err, "failed to sign storage service bearer token")
	}
	return signed, nil
}

func (c *Client) do(ctx context.Context, accountKey, method, path string, body any, out any) (int, error) {
	tok, err := c.bearerToken(accountKey)
	if err != nil {
		return 0, err
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, serr.Wrap(err, "failed to encode request body")
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, serr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, serr.Wrap(errkind.ErrCancelled, "storage service request cancelled")
		}
		return 0, serr.Wrap(errkind.ErrNetwork, "storage service request failed: "+err.Error())
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, serr.Wrap(err, "failed to decode storage service response")
		}
	}
	return resp.StatusCode, nil
}

type manifestWire struct {
	Version    uint64 `json:"version"`
	StorageIDs string `json:"storage_ids_b64"` // base64(wire.EncodeManifestIDs)
}

func (m manifestWire) decode() (manifest.Manifest, error) {
	raw, err := base64.StdEncoding.DecodeString(m.StorageIDs)
	if err != nil {
		return manifest.Manifest{}, serr.Wrap(err, "failed to decode manifest id list")
	}
	ids, err := wire.DecodeManifestIDs(raw)
	if err != nil {
		return manifest.Manifest{}, err
	}
	return manifest.Manifest{Version: m.Version, StorageIDs: ids}, nil
}

func encodeManifestWire(m manifest.Manifest) manifestWire {
	return manifestWire{
		Version:    m.Version,
		StorageIDs: base64.StdEncoding.EncodeToString(wire.EncodeManifestIDs(m.StorageIDs)),
	}
}

func (c *Client) GetManifestIfDifferent(ctx context.Context, accountKey string, knownVersion uint64) (*manifest.Manifest, error) {
	var resp struct {
		Manifest *manifestWire `json:"manifest"`
	}
	path := "/v1/storage/manifest?known_version=" + jsonUint(knownVersion)
	status, err := c.do(ctx, accountKey, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 300 {
		return nil, serr.Wrap(errkind.ErrNetwork, "storage service returned an error status reading manifest")
	}
	if resp.Manifest == nil {
		return nil, nil
	}
	m, err := resp.Manifest.decode()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ReadRecords(ctx context.Context, accountKey string, ids []storageid.ID) ([]record.Record, error) {
	reqBody := struct {
		IDs string `json:"ids_b64"`
	}{IDs: base64.StdEncoding.EncodeToString(wire.EncodeManifestIDs(ids))}

	var resp struct {
		RecordsFramedB64 string `json:"records_framed_b64"`
	}
	status, err := c.do(ctx, accountKey, http.MethodPost, "/v1/storage/records/read", reqBody, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, serr.Wrap(errkind.ErrNetwork, "storage service returned an error status reading records")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.RecordsFramedB64)
	if err != nil {
		return nil, serr.Wrap(err, "failed to decode framed records payload")
	}
	recs, err := wire.DecodeFramed(raw)
	if err != nil {
		logger.LogErr(err, "treating undecodable records as a decrypt failure")
		return nil, serr.Wrap(errkind.ErrDecryptFailure, "failed to decode returned records: "+err.Error())
	}
	return recs, nil
}

func (c *Client) WriteRecords(ctx context.Context, accountKey string, next manifest.Manifest, inserts []record.Record, deletes []storageid.ID) (*manifest.Manifest, error) {
	framedInserts, err := wire.EncodeFramed(inserts)
	if err != nil {
		return nil, err
	}

	reqBody := struct {
		NextManifest  manifestWire `json:"next_manifest"`
		InsertsB64    string       `json:"inserts_framed_b64"`
		DeletesIDsB64 string       `json:"deletes_ids_b64"`
		BaseVersion   uint64       `json:"base_version"`
	}{
		NextManifest:  encodeManifestWire(next),
		InsertsB64:    base64.StdEncoding.EncodeToString(framedInserts),
		DeletesIDsB64: base64.StdEncoding.EncodeToString(wire.EncodeManifestIDs(deletes)),
		BaseVersion:   next.Version - 1,
	}

	var resp struct {
		Conflict *manifestWire `json:"conflict_manifest,omitempty"`
	}
	status, err := c.do(ctx, accountKey, http.MethodPost, "/v1/storage/records/write", reqBody, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return nil, nil
	case http.StatusConflict:
		if resp.Conflict == nil {
			return nil, serr.Wrap(errkind.ErrRemoteConflict, "storage service reported a conflict without a manifest")
		}
		m, err := resp.Conflict.decode()
		if err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, serr.Wrap(errkind.ErrNetwork, "storage service returned an unexpected status writing records")
	}
}

func jsonUint(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

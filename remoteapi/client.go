package remoteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/objectzone/zonesync"
)

// Client is the read-only admin/REST surface of a source zone that the
// sync engine pulls from: the data log, the per-bucket-shard bilog, and
// the bucket/object metadata needed to drive full sync.
type Client interface {
	DataLogNumShards(ctx context.Context) (uint32, error)
	DataLogShardInfo(ctx context.Context, shardID uint32) (DataLogShardInfo, error)
	DataLogEntries(ctx context.Context, shardID uint32, marker string) (DataLogPage, error)

	BucketIndexInfo(ctx context.Context, bucketInstanceKey string) (BucketIndexInfo, error)
	BucketIndexLog(ctx context.Context, bucketInstanceKey string, marker string) ([]BilogEntryWire, error)

	ListBucketInstances(ctx context.Context) ([]string, error)
	BucketInstanceMetadata(ctx context.Context, key string) (BucketInstanceMetadata, error)

	ListBucketVersions(ctx context.Context, bucket string, bucketInstanceKey string, keyMarker string, versionIDMarker string) (VersionedListingPage, error)
}

// HTTPClient is the concrete Client, grounded on the teacher's
// client.APIClient.sendRequest: a single endpoint, a shared
// *http.Client, JSON in, JSON out.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient builds a Client against a source zone's RGW admin
// endpoint, e.g. "http://rgw.source-zone.example.com:8080".
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
}

func (c *HTTPClient) DataLogNumShards(ctx context.Context) (uint32, error) {
	var out DataLogShardCount

	if err := c.get(ctx, "/admin/log", url.Values{"type": {"data"}}, &out); err != nil {
		return 0, err
	}

	return out.NumObjects, nil
}

func (c *HTTPClient) DataLogShardInfo(ctx context.Context, shardID uint32) (DataLogShardInfo, error) {
	var out DataLogShardInfo

	q := url.Values{
		"type": {"data"},
		"id":   {strconv.FormatUint(uint64(shardID), 10)},
		"info": {""},
	}

	if err := c.get(ctx, "/admin/log", q, &out); err != nil {
		return DataLogShardInfo{}, err
	}

	return out, nil
}

func (c *HTTPClient) DataLogEntries(ctx context.Context, shardID uint32, marker string) (DataLogPage, error) {
	var out DataLogPage

	q := url.Values{
		"type":       {"data"},
		"id":         {strconv.FormatUint(uint64(shardID), 10)},
		"marker":     {marker},
		"extra-info": {"true"},
	}

	if err := c.get(ctx, "/admin/log", q, &out); err != nil {
		return DataLogPage{}, err
	}

	return out, nil
}

func (c *HTTPClient) BucketIndexInfo(ctx context.Context, bucketInstanceKey string) (BucketIndexInfo, error) {
	var out BucketIndexInfo

	q := url.Values{
		"type":            {"bucket-index"},
		"bucket-instance": {bucketInstanceKey},
		"info":            {""},
	}

	if err := c.get(ctx, "/admin/log", q, &out); err != nil {
		return BucketIndexInfo{}, err
	}

	return out, nil
}

func (c *HTTPClient) BucketIndexLog(ctx context.Context, bucketInstanceKey string, marker string) ([]BilogEntryWire, error) {
	var out []BilogEntryWire

	q := url.Values{
		"type":            {"bucket-index"},
		"bucket-instance": {bucketInstanceKey},
		"marker":          {marker},
	}

	if err := c.get(ctx, "/admin/log", q, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *HTTPClient) ListBucketInstances(ctx context.Context) ([]string, error) {
	var out []string

	if err := c.get(ctx, "/admin/metadata/bucket.instance", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *HTTPClient) BucketInstanceMetadata(ctx context.Context, key string) (BucketInstanceMetadata, error) {
	var out BucketInstanceMetadata

	q := url.Values{"key": {key}}

	if err := c.get(ctx, "/admin/metadata/bucket.instance", q, &out); err != nil {
		return BucketInstanceMetadata{}, err
	}

	return out, nil
}

func (c *HTTPClient) ListBucketVersions(ctx context.Context, bucket string, bucketInstanceKey string, keyMarker string, versionIDMarker string) (VersionedListingPage, error) {
	var out VersionedListingPage

	q := url.Values{
		"versions":             {""},
		"objs-container":       {"true"},
		"rgwx-bucket-instance": {bucketInstanceKey},
		"key-marker":           {keyMarker},
		"version-id-marker":    {versionIDMarker},
	}

	if err := c.get(ctx, "/"+bucket, q, &out); err != nil {
		return VersionedListingPage{}, err
	}

	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.endpoint + path

	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)

	if err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "remoteapi: build request", err)
	}

	resp, err := c.httpClient.Do(request)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "remoteapi: "+path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "remoteapi: read body", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return zonesync.NewError(zonesync.KindNotFound, fmt.Sprintf("remoteapi: %s: not found", path))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return zonesync.NewError(zonesync.KindTransient, fmt.Sprintf("remoteapi: %s: status %d: %s", path, resp.StatusCode, string(body)))
	}

	if resp.StatusCode != http.StatusOK {
		return zonesync.NewError(zonesync.KindPermanentRemote, fmt.Sprintf("remoteapi: %s: status %d: %s", path, resp.StatusCode, string(body)))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return zonesync.WrapError(zonesync.KindParse, "remoteapi: decode "+path, err)
	}

	return nil
}

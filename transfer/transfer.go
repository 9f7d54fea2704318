// Package transfer is the object fetch/delete primitive (spec.md §6):
// the thing that actually copies one object's bytes from the source
// zone into local storage, or tombstones it. It is an external
// collaborator — bucketsync drives it, it does not drive bucketsync.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/model"
)

// Primitive is the contract bucketsync's per-object task (§4.3.2) calls
// against: fetch an object version from the source zone, or remove
// one. Both are idempotent per the spec's at-least-once contract.
type Primitive interface {
	Fetch(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64) error
	Remove(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error
}

// HTTPPrimitive streams an object's bytes from the source zone's RGW
// endpoint into a local Sink, grounded on the teacher's
// HTTPTransferTransport.Get: issue a GET, check the status, hand back
// the body for the caller to drain.
type HTTPPrimitive struct {
	endpoint   string
	httpClient *http.Client
	sink       Sink
}

// Sink is where fetched object bytes and tombstones land. It is the
// local-zone half of the transfer primitive's contract — out of scope
// for this engine (spec.md §1), implemented by whatever storage layer
// zonesync is deployed against.
type Sink interface {
	Put(ctx context.Context, bucket string, key model.ObjectKey, versionedEpoch uint64, body io.Reader) error
	Delete(ctx context.Context, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error
}

// NewHTTPPrimitive builds a Primitive that fetches object bytes over
// HTTP from endpoint and hands them to sink.
func NewHTTPPrimitive(endpoint string, sink Sink) *HTTPPrimitive {
	return &HTTPPrimitive{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		sink:       sink,
	}
}

func (p *HTTPPrimitive) Fetch(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64) error {
	zonesync.Log.Debugf("transfer: fetching %s/%s (instance=%q epoch=%d) from zone %s", bucket, key.Name, key.Instance, versionedEpoch, sourceZone)

	q := url.Values{}

	if key.IsVersioned() {
		q.Set("rgwx-version-id", key.Instance)
	}

	u := fmt.Sprintf("%s/%s/%s", p.endpoint, bucket, key.Name)

	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)

	if err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "transfer: build fetch request", err)
	}

	resp, err := p.httpClient.Do(request)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "transfer: fetch "+key.Name, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return zonesync.NewError(zonesync.KindNotFound, "transfer: "+key.Name+": not found at source")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return zonesync.NewError(zonesync.KindTransient, fmt.Sprintf("transfer: fetch %s: status %d", key.Name, resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK {
		return zonesync.NewError(zonesync.KindPermanentRemote, fmt.Sprintf("transfer: fetch %s: status %d", key.Name, resp.StatusCode))
	}

	if err := p.sink.Put(ctx, bucket, key, versionedEpoch, resp.Body); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "transfer: store "+key.Name, err)
	}

	return nil
}

func (p *HTTPPrimitive) Remove(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error {
	zonesync.Log.Debugf("transfer: removing %s/%s (instance=%q epoch=%d)", bucket, key.Name, key.Instance, versionedEpoch)

	if err := p.sink.Delete(ctx, bucket, key, versionedEpoch, timestamp); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "transfer: delete "+key.Name, err)
	}

	return nil
}

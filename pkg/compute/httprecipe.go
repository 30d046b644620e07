package compute

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// HTTPRecipe is a Func that fetches a tile's pixels from a remote tile
// service, the same shape of work the teacher's rda.Retriever and
// rda.Realizer do against RDA's graph/node tile endpoints: build a URL from
// the tile index, issue a retrying GET, decode the body. Unlike the
// teacher's realizer, one HTTPRecipe invocation always produces exactly one
// Partial spanning the whole tile — HTTP tile services don't stream
// sub-extents.
type HTTPRecipe struct {
	Client *retryablehttp.Client

	// URL renders the tile request URL for one tile of one raster. rasterID
	// and channels mirror the RDA graphID/nodeID + bands convention the
	// teacher's tiler.go fmt.Sprintf-templates.
	URL func(rasterID string, col, row int, channels []string) string

	// TokenSource supplies the bearer token added to each request,
	// matching how rda.Retriever carries a *oauth2.Token per client.
	TokenSource oauth2.TokenSource

	// Decode turns a successful response body into an Array.
	Decode func(body io.Reader, channels []string, width, height int) (Array, error)
}

// NewHTTPRecipe returns an HTTPRecipe with a retryablehttp.Client whose
// logging is disabled, matching rda.NewRetriever's
// "r.client.Logger = nil" — this library's own logrus logger is what
// callers should consult instead.
func NewHTTPRecipe(tokenSource oauth2.TokenSource) *HTTPRecipe {
	c := retryablehttp.NewClient()
	c.Logger = nil
	return &HTTPRecipe{Client: c, TokenSource: tokenSource}
}

// Func adapts r to the compute.Func signature Computer expects.
func (r *HTTPRecipe) Func(ctx context.Context, req Request, emit Emit) error {
	_, _, w, h := req.Tile.Extent()
	url := r.URL(req.RasterID, req.Tile.Col, req.Tile.Row, req.Channels)

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "compute: failed building tile request for %s", url)
	}
	if r.TokenSource != nil {
		tok, err := r.TokenSource.Token()
		if err != nil {
			return errors.Wrap(err, "compute: failed obtaining bearer token")
		}
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tok.AccessToken))
	}

	res, err := r.Client.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "compute: failed requesting tile at %s", url)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("compute: tile request at %s failed, status: %d %s", url, res.StatusCode, res.Status)
	}

	arr, err := r.Decode(res.Body, req.Channels, w, h)
	if err != nil {
		return errors.Wrapf(err, "compute: failed decoding tile body from %s", url)
	}
	return emit(Partial{XOff: 0, YOff: 0, Width: w, Height: h, Array: arr})
}

/*
Package price provides the asset price oracle of the bridge.

Quotes are requested from all configured HTTP sources at once and the
median of the fresh answers is used. Results are cached and can be kept
warm by a Refresher running in the background.
*/
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/errors"
)

// Source provides a quote from a single price feed.
type Source interface {
	Name() string
	Quote(ctx context.Context, asset string) (bridge.Quote, error)
}

// HTTPSource fetches quotes with a GET request. The "{asset}" placeholder
// in the URL is replaced with the asset name. The response must be a JSON
// object of the form
//
//   {"price": 65000.12, "time": "2019-03-01T12:00:00Z"}
//
// A missing time means the quote is current.
type HTTPSource struct {
	name   string
	url    string
	client *http.Client
	now    func() time.Time
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(name, url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (s *HTTPSource) Name() string {
	return s.name
}

type quoteResponse struct {
	Price *float64  `json:"price"`
	Time  time.Time `json:"time"`
}

func (s *HTTPSource) Quote(ctx context.Context, asset string) (bridge.Quote, error) {
	url := strings.Replace(s.url, "{asset}", asset, -1)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return bridge.Quote{}, errors.Wrap(errors.ErrInput, err.Error())
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return bridge.Quote{}, errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return bridge.Quote{}, errors.Wrapf(errors.ErrUnavailable, "%s responded %s", s.name, resp.Status)
	}

	var q quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return bridge.Quote{}, errors.Wrapf(errors.ErrDependency, "%s: malformed quote: %s", s.name, err)
	}
	if q.Price == nil {
		return bridge.Quote{}, errors.Wrapf(errors.ErrDependency, "%s: no price", s.name)
	}
	if p := *q.Price; p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return bridge.Quote{}, errors.Wrapf(errors.ErrDependency, "%s: invalid price %v", s.name, p)
	}
	if q.Time.IsZero() {
		q.Time = s.now()
	}
	return bridge.Quote{Value: *q.Price, AsOf: q.Time}, nil
}

// StaticSource always returns the same price. It is meant for development
// networks.
type StaticSource float64

func (s StaticSource) Name() string {
	return fmt.Sprintf("static(%v)", float64(s))
}

func (s StaticSource) Quote(ctx context.Context, asset string) (bridge.Quote, error) {
	return bridge.Quote{Value: float64(s), AsOf: time.Now()}, nil
}

/*
Package mint releases locked deposits on the destination ledger through its
HTTP mint endpoint.
*/
package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
	"github.com/tendermint/tendermint/libs/log"
)

// Config describes the destination endpoint.
type Config struct {
	URL     string        `json:"url"`
	Token   string        `json:"token"`
	Timeout time.Duration `json:"timeout"`
}

// Client is a bridge.Releaser posting mint requests. Every request for a
// record carries the same idempotency key so that a retried release mints
// once.
type Client struct {
	conf   Config
	http   *http.Client
	logger log.Logger
}

var _ bridge.Releaser = (*Client)(nil)

func NewClient(conf Config, logger log.Logger) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		conf:   conf,
		http:   &http.Client{Timeout: conf.Timeout},
		logger: logger.With("module", "mint"),
	}
}

// Request is the body of a mint call.
type Request struct {
	TxID       custody.TxID         `json:"txId"`
	Recipient  custody.Address      `json:"recipient"`
	Amount     uint64               `json:"amount"`
	BoundPrice lock.FixedPointPrice `json:"boundPrice"`
	Signatures []custody.Address    `json:"signatures"`
}

func (c *Client) Release(ctx context.Context, r *lock.LockRecord) error {
	body, err := json.Marshal(Request{
		TxID:       r.TxID,
		Recipient:  r.Recipient,
		Amount:     r.Amount,
		BoundPrice: r.BoundPrice,
		Signatures: r.Signatures,
	})
	if err != nil {
		return errors.Wrap(err, "cannot serialize mint request")
	}
	req, err := http.NewRequest(http.MethodPost, c.conf.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", r.TxID.String())
	if c.conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()
	msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusConflict:
		// Minted by an earlier attempt.
		c.logger.Info("mint already executed", "txid", r.TxID)
		return nil
	case resp.StatusCode >= 500:
		return errors.Wrapf(errors.ErrUnavailable, "mint responded %s: %s", resp.Status, bytes.TrimSpace(msg))
	default:
		return errors.Wrap(errors.ErrDependency, fmt.Sprintf("mint responded %s: %s", resp.Status, bytes.TrimSpace(msg)))
	}
	c.logger.Info("minted", "txid", r.TxID, "recipient", r.Recipient, "amount", r.Amount)
	return nil
}

/*
Package bitcoin verifies deposits with a Bitcoin Core node over its
JSON-RPC interface.
*/
package bitcoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// rpcInvalidAddressOrKey is returned by the node for unknown transactions.
const rpcInvalidAddressOrKey = -5

// Config describes how to reach the node.
type Config struct {
	URL      string        `json:"url"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Timeout  time.Duration `json:"timeout"`
	// DepositAddress, when set, restricts the deposit amount to the
	// outputs paying to this address.
	DepositAddress string `json:"deposit_address"`
}

// Client is a bridge.Verifier backed by a Bitcoin Core node. The node must
// run with txindex enabled to look up confirmed transactions.
type Client struct {
	conf   Config
	http   *http.Client
	logger log.Logger
	ids    uint64
}

var _ bridge.Verifier = (*Client)(nil)

func NewClient(conf Config, logger log.Logger) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		conf:   conf,
		http:   &http.Client{Timeout: conf.Timeout},
		logger: logger.With("module", "bitcoin"),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     uint64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call executes a single RPC method and decodes its result into dest.
func (c *Client) call(ctx context.Context, method string, dest interface{}, params ...interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      atomic.AddUint64(&c.ids, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "cannot serialize request")
	}
	req, err := http.NewRequest(http.MethodPost, c.conf.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	if c.conf.User != "" {
		req.SetBasicAuth(c.conf.User, c.conf.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	// The node reports RPC errors with a non 200 status and a JSON body.
	var res rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		if resp.StatusCode != http.StatusOK {
			return errors.Wrapf(errors.ErrUnavailable, "%s: %s", method, resp.Status)
		}
		return errors.Wrapf(errors.ErrDependency, "%s: malformed response: %s", method, err)
	}
	if res.Error != nil {
		if res.Error.Code == rpcInvalidAddressOrKey {
			return errors.Wrap(errors.ErrLookup, res.Error.Message)
		}
		return errors.Wrapf(errors.ErrDependency, "%s: %s", method, res.Error)
	}
	if err := json.Unmarshal(res.Result, dest); err != nil {
		return errors.Wrapf(errors.ErrDependency, "%s: malformed result: %s", method, err)
	}
	return nil
}

type rawTx struct {
	TxID          string `json:"txid"`
	BlockHash     string `json:"blockhash"`
	Confirmations uint32 `json:"confirmations"`
	Vout          []vout `json:"vout"`
}

type vout struct {
	Value        float64 `json:"value"`
	N            uint32  `json:"n"`
	ScriptPubKey struct {
		Hex     string `json:"hex"`
		Type    string `json:"type"`
		Address string `json:"address"`
		// Older nodes list the addresses.
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

func (o vout) paysTo(addr string) bool {
	if o.ScriptPubKey.Address == addr {
		return true
	}
	for _, a := range o.ScriptPubKey.Addresses {
		if a == addr {
			return true
		}
	}
	return false
}

// VerifySourceTx returns the confirmation state and the deposited amount
// of a transaction.
func (c *Client) VerifySourceTx(ctx context.Context, txID custody.TxID) (bridge.SourceTx, error) {
	var tx rawTx
	if err := c.call(ctx, "getrawtransaction", &tx, txID.String(), true); err != nil {
		return bridge.SourceTx{}, errors.Wrapf(err, "transaction %s", txID)
	}

	src := bridge.SourceTx{
		Confirmed:     tx.BlockHash != "" && tx.Confirmations > 0,
		Confirmations: tx.Confirmations,
	}
	for _, o := range tx.Vout {
		if o.ScriptPubKey.Type == "nulldata" {
			if hint, ok := recipientHint(o.ScriptPubKey.Hex); ok && len(src.RecipientHint) == 0 {
				src.RecipientHint = hint
			}
			continue
		}
		if c.conf.DepositAddress != "" && !o.paysTo(c.conf.DepositAddress) {
			continue
		}
		amount, err := btcutil.NewAmount(o.Value)
		if err != nil {
			return bridge.SourceTx{}, errors.Wrapf(errors.ErrDependency, "output %d: %s", o.N, err)
		}
		src.Amount += amount
	}

	c.logger.Debug("transaction verified",
		"txid", txID, "confirmations", src.Confirmations, "amount", src.Amount, "hint", src.RecipientHint)
	return src, nil
}

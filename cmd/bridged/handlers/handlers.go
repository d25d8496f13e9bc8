package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"

	"github.com/btcsuite/btcutil"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
	"github.com/iov-one/custody/x/notify"
	"github.com/julienschmidt/httprouter"
)

// maxBodySize limits the size of any request body the API reads.
const maxBodySize = 1 << 16

// Coordinator runs the bridge operations.
type Coordinator interface {
	Lock(ctx context.Context, req bridge.LockRequest) (*lock.LockRecord, error)
	Sign(ctx context.Context, txID custody.TxID, signer custody.Address) (*lock.LockRecord, error)
	Release(ctx context.Context, txID custody.TxID) (*lock.LockRecord, error)
}

// Ledger gives read access to the custody records and the roster.
type Ledger interface {
	Get(txID custody.TxID) (*lock.LockRecord, error)
	List(status lock.LockStatus) ([]lock.LockRecord, error)
	ByRecipient(recipient custody.Address) ([]lock.LockRecord, error)
	Custodians() ([]lock.Custodian, error)
	Quorum() lock.QuorumConfig
}

// Contract is the destination ledger contract.
type Contract interface {
	Authorize(addr custody.Address, action string, txID custody.TxID, sig []byte) error
	Deliver(msg lock.Msg) lock.Result
}

// Registry manages notification subscribers.
type Registry interface {
	Register(url string, kinds []lock.EventKind) (uint64, error)
	Unregister(id uint64) error
	Subscriptions() ([]notify.Subscription, error)
	Deliveries(txID custody.TxID) ([]notify.Delivery, error)
}

var _ Coordinator = (*bridge.Coordinator)(nil)
var _ Ledger = (*lock.Ledger)(nil)
var _ Contract = lock.Handler{}
var _ Registry = (*notify.Dispatcher)(nil)

// Config contains everything the routes need.
type Config struct {
	Coordinator Coordinator
	Ledger      Ledger
	Contract    Contract
	Registry    Registry
	Info        Info
	State       Versioned
	// Metrics is served under /metrics when not nil.
	Metrics http.Handler
	// Debug exposes full error stacks in responses.
	Debug bool
}

// Routes returns the HTTP API of the bridge daemon.
func Routes(c Config) http.Handler {
	rt := httprouter.New()
	rt.Handler("GET", "/info", &InfoHandler{Info: c.Info, Ledger: c.Ledger, State: c.State})
	rt.Handler("POST", "/locks", &CreateLockHandler{Coordinator: c.Coordinator, Debug: c.Debug})
	rt.Handler("GET", "/locks", &LockListHandler{Ledger: c.Ledger, Debug: c.Debug})
	rt.Handler("GET", "/locks/:txid", &LockDetailHandler{Ledger: c.Ledger, Debug: c.Debug})
	rt.Handler("POST", "/locks/:txid/signatures", &SignHandler{
		Coordinator: c.Coordinator,
		Contract:    c.Contract,
		Debug:       c.Debug,
	})
	rt.Handler("POST", "/locks/:txid/release", &ReleaseHandler{
		Coordinator: c.Coordinator,
		Contract:    c.Contract,
		Debug:       c.Debug,
	})
	rt.Handler("GET", "/locks/:txid/deliveries", &DeliveriesHandler{Registry: c.Registry, Debug: c.Debug})
	rt.Handler("POST", "/contract/lock/:action", &ContractHandler{Contract: c.Contract})
	rt.Handler("GET", "/custodians", &CustodiansHandler{Ledger: c.Ledger, Debug: c.Debug})
	rt.Handler("GET", "/subscriptions", &SubscriptionListHandler{Registry: c.Registry, Debug: c.Debug})
	rt.Handler("POST", "/subscriptions", &SubscribeHandler{Registry: c.Registry, Debug: c.Debug})
	rt.Handler("DELETE", "/subscriptions/:id", &UnsubscribeHandler{Registry: c.Registry, Debug: c.Debug})
	if c.Metrics != nil {
		rt.Handler("GET", "/metrics", c.Metrics)
	}
	return rt
}

// Info describes the running daemon.
type Info struct {
	Version  string          `json:"version"`
	ChainID  string          `json:"chainId"`
	Identity custody.Address `json:"identity"`
	Asset    string          `json:"asset"`
}

// Versioned is a store committing to its state after every write.
type Versioned interface {
	LatestVersion() (custody.CommitID, error)
}

type InfoHandler struct {
	Info   Info
	Ledger Ledger
	// State is optional.
	State Versioned
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var state *custody.CommitID
	if h.State != nil {
		id, err := h.State.LatestVersion()
		if err != nil {
			log.Printf("cannot read state version: %s", err)
			JSONErr(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		state = &id
	}
	JSONResp(w, http.StatusOK, struct {
		Info
		Quorum lock.QuorumConfig `json:"quorum"`
		State  *custody.CommitID `json:"state,omitempty"`
	}{
		Info:   h.Info,
		Quorum: h.Ledger.Quorum(),
		State:  state,
	})
}

// CreateLockHandler verifies a deposit and creates its lock record.
type CreateLockHandler struct {
	Coordinator Coordinator
	Debug       bool
}

func (h *CreateLockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TxID      custody.TxID    `json:"txId"`
		Recipient custody.Address `json:"recipient"`
		// Amount is the deposit in satoshi.
		Amount int64 `json:"amount"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	rec, err := h.Coordinator.Lock(r.Context(), bridge.LockRequest{
		TxID:      input.TxID,
		Recipient: input.Recipient,
		Amount:    btcutil.Amount(input.Amount),
	})
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, rec)
}

// LockListHandler lists records by status or by recipient. Without a filter
// all pending and locked records are returned.
type LockListHandler struct {
	Ledger Ledger
	Debug  bool
}

func (h *LockListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("status") != "" && q.Get("recipient") != "" {
		JSONErr(w, http.StatusBadRequest, "At most one filter can be used at a time.")
		return
	}

	var (
		records []lock.LockRecord
		err     error
	)
	switch {
	case q.Get("recipient") != "":
		recipient, perr := custody.ParseAddress(q.Get("recipient"))
		if perr != nil {
			JSONErr(w, http.StatusBadRequest, "recipient must be a valid address.")
			return
		}
		records, err = h.Ledger.ByRecipient(recipient)
	case q.Get("status") != "":
		status, perr := lock.ParseLockStatus(q.Get("status"))
		if perr != nil {
			JSONErr(w, http.StatusBadRequest, "status must be one of pending, locked or released.")
			return
		}
		records, err = h.Ledger.List(status)
	default:
		var locked []lock.LockRecord
		if records, err = h.Ledger.List(lock.Pending); err == nil {
			locked, err = h.Ledger.List(lock.Locked)
			records = append(records, locked...)
		}
	}
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	if records == nil {
		records = []lock.LockRecord{}
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []lock.LockRecord `json:"objects"`
	}{
		Objects: records,
	})
}

type LockDetailHandler struct {
	Ledger Ledger
	Debug  bool
}

func (h *LockDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	txID, ok := txIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.Ledger.Get(txID)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, rec)
}

// approval is a custodian signed request body.
type approval struct {
	Custodian custody.Address `json:"custodian"`
	// Signature is the hex encoded signature of the action sign bytes.
	Signature string `json:"signature"`
}

func readApproval(w http.ResponseWriter, r *http.Request, contract Contract, action string, debug bool) (custody.TxID, custody.Address, bool) {
	txID, ok := txIDParam(w, r)
	if !ok {
		return txID, nil, false
	}
	var input approval
	if err := readJSON(r.Body, &input); err != nil {
		JSONError(w, err, debug)
		return txID, nil, false
	}
	if len(input.Custodian) == 0 {
		JSONErr(w, http.StatusBadRequest, "custodian is required.")
		return txID, nil, false
	}
	sig, err := hex.DecodeString(input.Signature)
	if err != nil || len(sig) == 0 {
		JSONErr(w, http.StatusBadRequest, "signature must be a hex encoded value.")
		return txID, nil, false
	}
	if err := contract.Authorize(input.Custodian, action, txID, sig); err != nil {
		JSONError(w, err, debug)
		return txID, nil, false
	}
	return txID, input.Custodian, true
}

// SignHandler records the signature of a custodian.
type SignHandler struct {
	Coordinator Coordinator
	Contract    Contract
	Debug       bool
}

func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	txID, signer, ok := readApproval(w, r, h.Contract, lock.ActionAddSignature, h.Debug)
	if !ok {
		return
	}
	rec, err := h.Coordinator.Sign(r.Context(), txID, signer)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, rec)
}

// ReleaseHandler executes the release of a locked record. Any active
// custodian can request it.
type ReleaseHandler struct {
	Coordinator Coordinator
	Contract    Contract
	Debug       bool
}

func (h *ReleaseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	txID, _, ok := readApproval(w, r, h.Contract, lock.ActionFinalizeRelease, h.Debug)
	if !ok {
		return
	}
	rec, err := h.Coordinator.Release(r.Context(), txID)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusOK, rec)
}

// ContractHandler executes a raw contract call. The result code is part
// of the response body, as the contract reports it.
type ContractHandler struct {
	Contract Contract
}

func (h *ContractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := httprouter.ParamsFromContext(r.Context()).ByName("action")
	raw, err := ioutil.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		JSONErr(w, http.StatusBadRequest, "cannot read request body.")
		return
	}
	msg, err := lock.DecodeMsg("lock/"+action, raw)
	switch {
	case err == nil:
	case errors.ErrNotFound.Is(err):
		JSONErr(w, http.StatusNotFound, err.Error())
		return
	default:
		JSONErr(w, http.StatusBadRequest, err.Error())
		return
	}
	JSONResp(w, http.StatusOK, h.Contract.Deliver(msg))
}

type CustodiansHandler struct {
	Ledger Ledger
	Debug  bool
}

func (h *CustodiansHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	custodians, err := h.Ledger.Custodians()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	if custodians == nil {
		custodians = []lock.Custodian{}
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []lock.Custodian `json:"objects"`
	}{
		Objects: custodians,
	})
}

type SubscriptionListHandler struct {
	Registry Registry
	Debug    bool
}

func (h *SubscriptionListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Registry.Subscriptions()
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	if subs == nil {
		subs = []notify.Subscription{}
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []notify.Subscription `json:"objects"`
	}{
		Objects: subs,
	})
}

type SubscribeHandler struct {
	Registry Registry
	Debug    bool
}

func (h *SubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var input struct {
		URL   string           `json:"url"`
		Kinds []lock.EventKind `json:"kinds"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	id, err := h.Registry.Register(input.URL, input.Kinds)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	JSONResp(w, http.StatusCreated, struct {
		ID uint64 `json:"id"`
	}{
		ID: id,
	})
}

type UnsubscribeHandler struct {
	Registry Registry
	Debug    bool
}

func (h *UnsubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		JSONErr(w, http.StatusBadRequest, "subscription id must be an integer.")
		return
	}
	if err := h.Registry.Unregister(id); err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeliveriesHandler returns the notification bookkeeping of a record.
type DeliveriesHandler struct {
	Registry Registry
	Debug    bool
}

func (h *DeliveriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	txID, ok := txIDParam(w, r)
	if !ok {
		return
	}
	deliveries, err := h.Registry.Deliveries(txID)
	if err != nil {
		JSONError(w, err, h.Debug)
		return
	}
	if deliveries == nil {
		deliveries = []notify.Delivery{}
	}
	JSONResp(w, http.StatusOK, struct {
		Objects []notify.Delivery `json:"objects"`
	}{
		Objects: deliveries,
	})
}

func txIDParam(w http.ResponseWriter, r *http.Request) (custody.TxID, bool) {
	txID, err := custody.ParseTxID(httprouter.ParamsFromContext(r.Context()).ByName("txid"))
	if err != nil {
		JSONErr(w, http.StatusBadRequest, "transaction id must be a 32 byte hex value.")
		return txID, false
	}
	return txID, true
}

func readJSON(body io.Reader, dest interface{}) error {
	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(dest); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return nil
}

// StatusCode returns the HTTP status that represents given error.
func StatusCode(err error) int {
	switch {
	case errors.ErrNotFound.Is(err):
		return http.StatusNotFound
	case errors.ErrUnauthorized.Is(err), lock.ErrUnauthorizedSigner.Is(err):
		return http.StatusForbidden
	case lock.IsConflict(err):
		return http.StatusConflict
	case bridge.ErrPriceUnavailable.Is(err), lock.IsRetryable(err), errors.ErrLookup.Is(err):
		return http.StatusServiceUnavailable
	case errors.ErrInput.Is(err),
		errors.ErrEmpty.Is(err),
		errors.ErrAmount.Is(err),
		errors.ErrModel.Is(err),
		errors.ErrType.Is(err),
		errors.ErrMsg.Is(err),
		lock.ErrInvalidAmount.Is(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// JSONError writes err using the status it maps to. Errors without a
// registered code are reported as internal failures.
func JSONError(w http.ResponseWriter, err error, debug bool) {
	code := StatusCode(err)
	_, msg := errors.Public(err, debug)
	if code == http.StatusInternalServerError {
		log.Printf("request failed: %+v", err)
	}
	JSONResp(w, code, struct {
		Errors []string `json:"errors"`
		Code   uint32   `json:"code"`
	}{
		Errors: []string{msg},
		Code:   errors.Code(err),
	})
}

// JSONResp write content as JSON encoded response.
func JSONResp(w http.ResponseWriter, code int, content interface{}) {
	b, err := json.MarshalIndent(content, "", "\t")
	if err != nil {
		log.Printf("cannot JSON serialize response: %s", err)
		code = http.StatusInternalServerError
		b = []byte(`{"errors":["Internal Server Error"]}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// JSONErr write single error as JSON encoded response.
func JSONErr(w http.ResponseWriter, code int, errText string) {
	JSONResp(w, code, struct {
		Errors []string `json:"errors"`
	}{
		Errors: []string{errText},
	})
}

package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// WSClient is a websocket-enabled RPC client. It embeds Client for regular
// requests and keeps a persistent connection to the node's PubSub endpoint
// for subscriptions.
type WSClient struct {
	*Client

	ws       *websocket.Conn
	wsOpts   WSOptions
	done     chan struct{}
	requests chan *wsRequest
	shutdown chan struct{}
	closeMtx sync.Mutex
	closed   bool

	latestReqID *atomic.Uint64

	respLock sync.Mutex
	pending  map[uint64]chan *wsMessage

	subsLock sync.Mutex
	subs     map[uint64]chan SignatureEvent
	early    map[uint64]SignatureEvent
}

// WSOptions defines options for the websocket client.
type WSOptions struct {
	Options
	// Endpoint is the websocket endpoint, it's derived from the HTTP one when
	// empty (port+1 for explicit ports, like solana-test-validator does).
	Endpoint string
	// DialTimeout limits websocket handshake, RequestTimeout is used if not
	// set.
	DialTimeout time.Duration
}

// SignatureEvent is the signatureNotification payload.
type SignatureEvent struct {
	Slot uint64
	// Err is non-nil for transactions failed on chain.
	Err any
}

// RPCError is a JSON-RPC error returned over websocket.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type signatureNotification struct {
	Result struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Err any `json:"err"`
		} `json:"value"`
	} `json:"result"`
	Subscription uint64 `json:"subscription"`
}

const (
	// Message limit for receiving side.
	wsReadLimit = 10 * 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2

	// Number of notifications kept for subscriptions not yet registered.
	maxEarlyEvents = 64
)

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// NewWS returns a new WSClient ready to use (with established websocket
// connection). endpoint is the HTTP endpoint of the node.
func NewWS(ctx context.Context, endpoint string, opts WSOptions) (*WSClient, error) {
	cl, err := New(ctx, endpoint, opts.Options)
	if err != nil {
		return nil, err
	}
	wsEndpoint := opts.Endpoint
	if wsEndpoint == "" {
		wsEndpoint, err = cluster.WSURL(endpoint)
		if err != nil {
			return nil, err
		}
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = cl.opts.RequestTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	ws, resp, err := dialer.DialContext(ctx, wsEndpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", wsEndpoint, err)
	}
	wsc := &WSClient{
		Client:      cl,
		ws:          ws,
		wsOpts:      opts,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		requests:    make(chan *wsRequest),
		latestReqID: atomic.NewUint64(0),
		pending:     make(map[uint64]chan *wsMessage),
		subs:        make(map[uint64]chan SignatureEvent),
		early:       make(map[uint64]SignatureEvent),
	}
	go wsc.wsReader()
	go wsc.wsWriter()
	return wsc, nil
}

// Close closes connection to the remote side rendering this client instance
// unusable. It's safe to call it multiple times.
func (c *WSClient) Close() error {
	c.closeMtx.Lock()
	if !c.closed {
		c.closed = true
		// wsWriter closes the connection which makes wsReader fail and
		// close c.done.
		close(c.shutdown)
	}
	c.closeMtx.Unlock()
	<-c.done
	return c.Client.Close()
}

func (c *WSClient) wsReader() {
	c.ws.SetReadLimit(wsReadLimit)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	})
	for {
		msg := new(wsMessage)
		_ = c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
		if err := c.ws.ReadJSON(msg); err != nil {
			// Timeout/connection loss/malformed message.
			break
		}
		if msg.ID == nil && msg.Method != "" {
			c.notify(msg)
			continue
		}
		if msg.ID != nil {
			c.respLock.Lock()
			ch, ok := c.pending[*msg.ID]
			delete(c.pending, *msg.ID)
			c.respLock.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}
		// Neither a notification nor a response.
		break
	}
	close(c.done)
	c.respLock.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.respLock.Unlock()
	c.subsLock.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsLock.Unlock()
}

func (c *WSClient) wsWriter() {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer c.ws.Close()
	defer pingTicker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-c.done:
			return
		case req := <-c.requests:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout))
			if err := c.ws.WriteJSON(req); err != nil {
				return
			}
		case <-pingTicker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteLimit))
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// notify delivers signatureNotification to its subscriber. Signature
// subscriptions are cancelled by the node after the first notification, so
// the subscriber channel is closed right after it.
func (c *WSClient) notify(msg *wsMessage) {
	if msg.Method != "signatureNotification" {
		return
	}
	var n signatureNotification
	if err := json.Unmarshal(msg.Params, &n); err != nil {
		return
	}
	c.subsLock.Lock()
	ev := SignatureEvent{Slot: n.Result.Context.Slot, Err: n.Result.Value.Err}
	ch, ok := c.subs[n.Subscription]
	if !ok {
		if len(c.early) < maxEarlyEvents {
			c.early[n.Subscription] = ev
		}
		c.subsLock.Unlock()
		return
	}
	delete(c.subs, n.Subscription)
	c.subsLock.Unlock()
	ch <- ev
	close(ch)
}

func (c *WSClient) performRequest(ctx context.Context, method string, params []any, v any) error {
	if params == nil {
		params = []any{}
	}
	req := &wsRequest{
		JSONRPC: "2.0",
		ID:      c.latestReqID.Inc(),
		Method:  method,
		Params:  params,
	}
	respCh := make(chan *wsMessage, 1)
	c.respLock.Lock()
	c.pending[req.ID] = respCh
	c.respLock.Unlock()
	defer func() {
		c.respLock.Lock()
		delete(c.pending, req.ID)
		c.respLock.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	select {
	case <-c.done:
		return ErrConnectionLost
	case <-ctx.Done():
		return ctx.Err()
	case c.requests <- req:
	}
	select {
	case <-c.done:
		return ErrConnectionLost
	case <-ctx.Done():
		return ctx.Err()
	case resp, ok := <-respCh:
		if !ok {
			return ErrConnectionLost
		}
		if resp.Error != nil {
			return resp.Error
		}
		if resp.Result == nil {
			return fmt.Errorf("no result returned for %s", method)
		}
		return json.Unmarshal(resp.Result, v)
	}
}

// SubscribeSignature subscribes to the transaction status change. The
// channel returned receives a single event when the transaction reaches the
// given commitment and is closed after that (or when connection is lost).
func (c *WSClient) SubscribeSignature(sig solana.Signature, commitment rpc.CommitmentType) (uint64, <-chan SignatureEvent, error) {
	defer observe("signatureSubscribe", time.Now())
	params := []any{sig.String(), map[string]any{"commitment": commitment}}
	var id uint64
	if err := c.performRequest(c.ctx, "signatureSubscribe", params, &id); err != nil {
		return 0, nil, err
	}
	ch := make(chan SignatureEvent, 1)
	c.subsLock.Lock()
	defer c.subsLock.Unlock()
	select {
	case <-c.done:
		close(ch)
		return 0, nil, ErrConnectionLost
	default:
	}
	// The notification could've been received before the subscription
	// response was processed.
	if ev, ok := c.early[id]; ok {
		delete(c.early, id)
		ch <- ev
		close(ch)
		return id, ch, nil
	}
	c.subs[id] = ch
	return id, ch, nil
}

// UnsubscribeSignature cancels the subscription, it's fine to call it for
// subscriptions that have already fired.
func (c *WSClient) UnsubscribeSignature(id uint64) error {
	defer observe("signatureUnsubscribe", time.Now())
	c.subsLock.Lock()
	ch, ok := c.subs[id]
	delete(c.subs, id)
	c.subsLock.Unlock()
	if !ok {
		return nil
	}
	close(ch)
	var res bool
	if err := c.performRequest(c.ctx, "signatureUnsubscribe", []any{id}, &res); err != nil {
		return err
	}
	if !res {
		return fmt.Errorf("subscription %d was not removed", id)
	}
	return nil
}

/*
Package waiter provides ways to await transaction confirmation.

Solana transactions reference a recent blockhash and are valid until the
block height returned along with it (lastValidBlockHeight). Waiters poll or
subscribe for the transaction signature status until the desired commitment
is reached or the chain goes past that height.
*/
package waiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// DefaultPollRetryCount is a threshold for a number of subsequent failed
	// attempts to get data from the RPC server for PollingBased. If it fails
	// DefaultPollRetryCount times in a row then transaction awaiting attempt
	// is considered to be failed and an error is returned.
	DefaultPollRetryCount = 3
	// DefaultPollInterval is a default time between subsequent polls, it's
	// about an average slot time.
	DefaultPollInterval = 500 * time.Millisecond
)

var (
	// ErrTxNotAccepted is returned when transaction wasn't accepted to the
	// chain before its blockhash expired.
	ErrTxNotAccepted = errors.New("transaction was not accepted to chain")
	// ErrTxFailed is returned when transaction was included, but its
	// execution failed.
	ErrTxFailed = errors.New("transaction failed")
	// ErrContextDone is returned when Waiter context has been done in the middle
	// of transaction awaiting process and no result was received yet.
	ErrContextDone = errors.New("waiter context done")
	// ErrAwaitingNotSupported is returned from Wait method if Waiter instance
	// doesn't support transaction awaiting.
	ErrAwaitingNotSupported = fmt.Errorf("%w: awaiting", errors.ErrUnsupported)
	// ErrMissedEvent is returned when subscription channel is closed without
	// any notification which happens when connection is lost.
	ErrMissedEvent = errors.New("some event was missed")
)

type (
	// Waiter is an interface providing transaction awaiting functionality.
	Waiter interface {
		// Wait allows to wait until transaction will be confirmed. It can be
		// used as a wrapper for Send and accepts transaction signature,
		// last valid block height and an error. "Already processed" error
		// is not treated as an error here since such transaction can be
		// awaited in a usual way.
		Wait(ctx context.Context, sig solana.Signature, lastValid uint64, err error) (*Result, error)
		// WaitAny waits until at least one of the specified transactions is
		// confirmed. Zero lastValid means no expiration (durable nonce
		// transactions), only context limits awaiting then.
		WaitAny(ctx context.Context, lastValid uint64, sigs ...solana.Signature) (*Result, error)
	}
	// RPCPollingBased is an interface that enables transaction awaiting
	// functionality based on periodical status and block height polls.
	RPCPollingBased interface {
		// Context should return the RPC client context to be able to gracefully
		// shut down all running processes (if so).
		Context() context.Context
		GetBlockHeight(commitment rpc.CommitmentType) (uint64, error)
		GetSignatureStatuses(searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	}
	// RPCEventBased is an interface that enables improved transaction
	// awaiting functionality based on websocket signature notifications. It
	// contains RPCPollingBased under the hood and falls back to polling
	// when subscription-based awaiting fails.
	RPCEventBased interface {
		RPCPollingBased

		SubscribeSignature(sig solana.Signature, commitment rpc.CommitmentType) (uint64, <-chan rpcclient.SignatureEvent, error)
		UnsubscribeSignature(id uint64) error
	}
)

// Result is the confirmed transaction status.
type Result struct {
	Signature solana.Signature
	Slot      uint64
	// Err is the on-chain execution error, nil for successful transactions.
	Err any
}

// Config is a unified configuration for [Waiter] implementations that allows to
// customize awaiting behaviour.
type Config struct {
	PollConfig
	// Commitment to wait for, confirmed is used by default.
	Commitment rpc.CommitmentType
}

// PollConfig is a configuration for PollingBased waiter.
type PollConfig struct {
	// PollInterval is a time interval between subsequent polls.
	PollInterval time.Duration
	// RetryCount is the number of retry attempts while fetching data before
	// an error is returned from Wait or WaitAny.
	RetryCount int
}

// Null is a Waiter stub that doesn't support transaction awaiting functionality.
type Null struct{}

// PollingBased is a polling-based Waiter.
type PollingBased struct {
	polling    RPCPollingBased
	config     PollConfig
	commitment rpc.CommitmentType
}

// EventBased is a websocket-based Waiter.
type EventBased struct {
	ws      RPCEventBased
	polling *PollingBased
}

// errIsAlreadyProcessed matches the preflight error returned for duplicate
// transactions.
func errIsAlreadyProcessed(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already been processed")
}

// New creates Waiter instance. It can be either websocket-based or
// polling-based, otherwise Waiter stub is returned. It accepts
// RPCEventBased implementation, RPCPollingBased implementation or not an
// implementation of these two interfaces.
func New(base any, config Config) Waiter {
	if eventW, ok := base.(RPCEventBased); ok {
		return NewEventBased(eventW, config)
	}
	if pollW, ok := base.(RPCPollingBased); ok {
		return NewPollingBased(pollW, config)
	}
	return NewNull()
}

// NewNull creates an instance of Waiter stub.
func NewNull() Null {
	return Null{}
}

// Wait implements Waiter interface.
func (Null) Wait(context.Context, solana.Signature, uint64, error) (*Result, error) {
	return nil, ErrAwaitingNotSupported
}

// WaitAny implements Waiter interface.
func (Null) WaitAny(context.Context, uint64, ...solana.Signature) (*Result, error) {
	return nil, ErrAwaitingNotSupported
}

// NewPollingBased creates an instance of Waiter supporting poll-based
// transaction awaiting.
func NewPollingBased(waiter RPCPollingBased, config Config) *PollingBased {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryCount <= 0 {
		config.RetryCount = DefaultPollRetryCount
	}
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentConfirmed
	}
	return &PollingBased{
		polling:    waiter,
		config:     config.PollConfig,
		commitment: config.Commitment,
	}
}

// Wait implements Waiter interface.
func (w *PollingBased) Wait(ctx context.Context, sig solana.Signature, lastValid uint64, err error) (*Result, error) {
	if err != nil && !errIsAlreadyProcessed(err) {
		return nil, err
	}
	return w.WaitAny(ctx, lastValid, sig)
}

// WaitAny implements Waiter interface.
func (w *PollingBased) WaitAny(ctx context.Context, lastValid uint64, sigs ...solana.Signature) (*Result, error) {
	var failedAttempt int
	timer := time.NewTicker(w.config.PollInterval)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			res, err := w.check(sigs)
			if err == nil && res == nil && lastValid != 0 {
				var height uint64
				height, err = w.polling.GetBlockHeight(w.commitment)
				if err == nil && height > lastValid {
					return nil, ErrTxNotAccepted
				}
			}
			if err != nil {
				failedAttempt++
				if failedAttempt > w.config.RetryCount {
					return nil, err
				}
				continue
			}
			failedAttempt = 0
			if res != nil {
				return resultWithErr(res)
			}
		case <-w.polling.Context().Done():
			return nil, fmt.Errorf("%w: %w", ErrContextDone, w.polling.Context().Err())
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
		}
	}
}

// check returns the first transaction status that has reached the required
// commitment (if any).
func (w *PollingBased) check(sigs []solana.Signature) (*Result, error) {
	st, err := w.polling.GetSignatureStatuses(false, sigs...)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve signature statuses: %w", err)
	}
	for i, s := range st.Value {
		if s == nil || i >= len(sigs) || !Reached(s.ConfirmationStatus, w.commitment) {
			continue
		}
		return &Result{Signature: sigs[i], Slot: s.Slot, Err: s.Err}, nil
	}
	return nil, nil
}

func resultWithErr(res *Result) (*Result, error) {
	if res.Err != nil {
		return res, fmt.Errorf("%w: %v", ErrTxFailed, res.Err)
	}
	return res, nil
}

// Reached returns true when the status is at least as strong as the
// commitment given.
func Reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	return statusLevel(status) >= commitmentLevel(commitment)
}

func statusLevel(s rpc.ConfirmationStatusType) int {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	}
	return 0
}

func commitmentLevel(c rpc.CommitmentType) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 1
	case rpc.CommitmentFinalized:
		return 3
	}
	return 2
}

// NewEventBased creates an instance of Waiter supporting websocket
// event-based transaction awaiting. EventBased contains PollingBased under
// the hood and falls back to polling when subscription-based awaiting
// fails.
func NewEventBased(waiter RPCEventBased, config Config) *EventBased {
	return &EventBased{
		ws:      waiter,
		polling: NewPollingBased(waiter, config),
	}
}

// Wait implements Waiter interface.
func (w *EventBased) Wait(ctx context.Context, sig solana.Signature, lastValid uint64, err error) (*Result, error) {
	if err != nil && !errIsAlreadyProcessed(err) {
		return nil, err
	}
	return w.WaitAny(ctx, lastValid, sig)
}

type sigEvent struct {
	idx int
	rpcclient.SignatureEvent
	missed bool
}

// WaitAny implements Waiter interface.
func (w *EventBased) WaitAny(ctx context.Context, lastValid uint64, sigs ...solana.Signature) (res *Result, waitErr error) {
	var (
		wsWaitErr error
		subIDs    = make([]uint64, 0, len(sigs))
		events    = make(chan sigEvent, len(sigs))
	)
	for i, sig := range sigs {
		id, ch, err := w.ws.SubscribeSignature(sig, w.polling.commitment)
		if err != nil {
			wsWaitErr = fmt.Errorf("failed to subscribe for signature %s: %w", sig, err)
			break
		}
		subIDs = append(subIDs, id)
		go func(idx int, ch <-chan rpcclient.SignatureEvent) {
			ev, ok := <-ch
			events <- sigEvent{idx: idx, SignatureEvent: ev, missed: !ok}
		}(i, ch)
	}
	// There is a potential race between subscription and acceptance, so
	// do a polling check once _after_ the subscription.
	if wsWaitErr == nil {
		var err error
		res, err = w.polling.check(sigs)
		if err != nil {
			wsWaitErr = err
		}
	}

	if wsWaitErr == nil && res == nil {
		timer := time.NewTicker(w.polling.config.PollInterval)
	waitLoop:
		for {
			select {
			case ev := <-events:
				if ev.missed {
					wsWaitErr = ErrMissedEvent
					break waitLoop
				}
				res = &Result{Signature: sigs[ev.idx], Slot: ev.Slot, Err: ev.Err}
				break waitLoop
			case <-timer.C:
				if lastValid == 0 {
					continue
				}
				// Blockhash expiration has no notification, so it's polled.
				height, err := w.ws.GetBlockHeight(w.polling.commitment)
				if err == nil && height > lastValid {
					waitErr = ErrTxNotAccepted
					break waitLoop
				}
			case <-w.ws.Context().Done():
				waitErr = fmt.Errorf("%w: %w", ErrContextDone, w.ws.Context().Err())
				break waitLoop
			case <-ctx.Done():
				waitErr = fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
				break waitLoop
			}
		}
		timer.Stop()
	}

	for _, id := range subIDs {
		if err := w.ws.UnsubscribeSignature(id); err != nil {
			errFmt := "unsubscription error (id: %d): %w"
			errArgs := []any{id, err}
			if waitErr != nil {
				errFmt = "%w; " + errFmt
				errArgs = append([]any{waitErr}, errArgs...)
			}
			waitErr = fmt.Errorf(errFmt, errArgs...)
		}
	}

	// Rollback to a poll-based waiter if needed.
	if wsWaitErr != nil && waitErr == nil {
		res, waitErr = w.polling.WaitAny(ctx, lastValid, sigs...)
		if waitErr != nil && !errors.Is(waitErr, ErrTxFailed) {
			// Wrap the poll-based error, it's more important.
			waitErr = fmt.Errorf("event-based error: %w; poll-based waiter error: %w", wsWaitErr, waitErr)
		}
		return res, waitErr
	}
	if res != nil && waitErr == nil {
		return resultWithErr(res)
	}
	return res, waitErr
}

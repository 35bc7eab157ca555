package rpcclient

import "errors"

var (
	errNetworkNotInitialized = errors.New("RPC client network is not initialized")
	// ErrConnectionLost is returned by WSClient when the websocket connection
	// is gone.
	ErrConnectionLost = errors.New("connection lost")
)

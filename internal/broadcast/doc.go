// Package broadcast fans reading updates out to live subscribers.
//
// A Hub holds the set of open subscriptions. Publish marshals an event once,
// snapshots the set, and offers the bytes to each subscriber without
// blocking. A subscriber that cannot take the event (buffer full, already
// closed) is unsubscribed; the others are unaffected and the publisher never
// waits on a slow connection.
//
// Transports (SSE, WebSocket) drain Subscriber.Messages until
// Subscriber.Done is closed, and must call Hub.Unsubscribe on every exit
// path:
//
//	sub, err := hub.Subscribe()
//	if err != nil {
//	    return err
//	}
//	defer hub.Unsubscribe(sub)
package broadcast

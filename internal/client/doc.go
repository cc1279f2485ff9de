// Package client calls a remote ppmsteg server.
//
// Client wraps the HTTP endpoints and retries network failures and 5xx
// replies with exponential backoff. Session keeps a websocket open for
// batches of requests.
//
//	c := client.New("http://studio.local:8765")
//	out, err := c.Encode(ctx, image, "meet at noon")
//	if client.IsType(err, api.TypeCapacity) {
//	    // pick a bigger image
//	}
package client

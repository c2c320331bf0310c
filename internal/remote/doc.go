// Package remote is a client for a device's configuration portal.
//
// While a device is in setup mode it serves a form on its access point.
// The same endpoints answer JSON when asked, which lets `wifiprov remote`
// list, add and delete networks from a laptop joined to that access point:
//
//	c := remote.NewClient("192.168.4.1", remote.DefaultPort)
//	list, err := c.Networks(ctx)
//	msg, err := c.Save(ctx, "HomeNet", "correct horse")
//
// Reads are retried with exponential backoff on transport errors and 5xx
// responses. Form posts are only repeated when the device certainly did not
// receive them (connection refused, or 503 from a busy portal).
package remote

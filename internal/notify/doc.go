// Package notify delivers supervisor state changes to observers.
//
// Every notifier here satisfies supervisor.Notifier. Multi fans out to
// several of them and wraps each with Safe, so a panicking observer is
// logged and skipped. The Hub streams changes over websocket to
// `wifiprov watch`, and Metrics exports them to Prometheus.
package notify

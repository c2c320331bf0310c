// Package supervisor owns the device's connectivity state machine.
//
// A Supervisor walks five states: Idle, AttemptingSaved, Connected,
// Recovering and PortalActive. It is driven by Tick, which the caller runs
// on a fixed interval (or via Run). Every state change happens on the
// ticking goroutine; the portal's requests are queued and applied on the
// next tick, so the radio is only ever touched from one place.
//
// # Lifecycle
//
//	sup := supervisor.New(station, store, portal,
//	    supervisor.WithNotifier(n))
//	if err := sup.Setup(ctx); err != nil {
//	    return err
//	}
//	return sup.Run(ctx, supervisor.DefaultTickInterval)
//
// Setup loads the saved networks and starts attempting them. With nothing
// saved, or once every saved network has failed, the portal is opened for
// ConfigTimeout before the saved networks are tried again. A lost link is
// retried for up to ReconnectAttempts cycles with backoff between them.
//
// Portal.Start and Portal.Stop, and then the notifiers, are called after the
// state lock is released, in transition order, so portal components and
// observers may call Snapshot. A panic in a notifier is logged and does not
// stop the tick.
package supervisor

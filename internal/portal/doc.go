// Package portal runs the on-device configuration portal.
//
// While active the portal puts the radio into access-point mode, answers
// every DNS lookup with its own address (package captive) and serves a small
// form (package web) where a user enters a network name and pass-phrase.
//
// The HTTP layer never touches the supervisor directly. Save and Delete put
// a request in a bounded mailbox and wait; the supervisor's tick calls Poll,
// which stores the credential and then calls RequestAttempt or
// CredentialRemoved on the supervisor. Requests still queued when the portal
// stops are answered with ErrPortalClosed.
package portal

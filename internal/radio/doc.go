// Package radio defines the link primitives the supervisor and portal drive.
//
// The radio itself is outside this module; Station and AccessPoint describe
// the connect/disconnect/status and soft-AP calls a platform must provide.
// Two implementations are included:
//
//   - Sim: a deterministic in-process radio used by tests and by
//     `wifiprov run --simulate`.
//   - NMCLI: a Linux backend that drives NetworkManager through nmcli.
//
// Connect must not wait for the association. The supervisor calls it once
// and then polls Status on each tick until the link is up, fails, or the
// attempt window closes.
package radio

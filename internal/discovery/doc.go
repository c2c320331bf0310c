// Package discovery advertises and finds wifiprov configuration portals over mDNS.
//
// While its portal is active a device registers a "_wifiprov._tcp" service
// (Advertiser). Another machine on the soft-AP network can then list the
// portals in range (Scanner) without knowing the gateway address.
//
// # TXT record
//
//   - ap: the soft-AP network name
//   - session: the portal session ID
//   - version: the wifiprov build version
//
// # Usage Example
//
//	devices, err := discovery.NewScanner().ScanForDevices(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package discovery

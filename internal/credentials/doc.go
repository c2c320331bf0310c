// Package credentials stores the networks a device may join.
//
// A Store holds at most MaxNetworks credentials in priority order
// (insertion order). It persists through a go-datastore under the /wifi
// namespace using one record per slot:
//
//	/wifi/count         decimal number of saved networks
//	/wifi/net0/id       identifier of slot 0
//	/wifi/net0/secret   pass-phrase of slot 0
//	...
//	/wifi/net3/secret
//
// # Write-through
//
// Save and Delete stage the complete record in one datastore batch, commit
// it, sync it, and only then update the in-memory set. There is no
// in-memory-only mutation.
//
// # Capacity policy
//
// A Store is created with one CapacityPolicy and keeps it:
//
//   - PolicyReject: saving a new identifier on a full store returns a
//     StoreError of type ErrTypeCapacityExceeded and changes nothing.
//   - PolicyEvictOldest: the entry at index 0 is dropped and the new one
//     is appended.
//
// Updating the secret of an identifier that is already saved never counts
// against capacity and keeps the entry's position.
//
// # Usage Example
//
//	store, err := credentials.OpenLevelDB("/var/lib/wifiprov/networks")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	saved := store.Load(ctx) // never fails; corrupt data reads as empty
//	if err := store.Save(ctx, "HomeNet", "pass12345"); credentials.IsCapacityExceeded(err) {
//	    // tell the user to delete a network first
//	}
package credentials

// Package resource provides the asset slot table behind native objects
// exposed to the script engine.
//
// Every asset the engine sees is an *abi.Asset header. The header carries the
// class descriptor and a Handle that locates a slot holding the Go payload and
// its reference count:
//
//	table := resource.NewTable()
//
//	// Insert a payload, get a header with count 1
//	header, err := table.Insert(class, "*main.Person", person)
//
//	// Retrieve the payload
//	payload, ok := table.Lookup(header)
//
//	// Count references
//	table.Retain(header) // 2
//	table.Release(header) // 1
//	table.Release(header) // 0, payload destroyed
//
// # Stale Headers
//
// A slot freed by its last release may be reused. Reuse always allocates a
// new header, so an old header never resolves to the new payload. Releasing
// through an old header reports a double release.
//
// # Uncounted Slots
//
// InsertUncounted serves objects whose lifetime is owned elsewhere: globals
// and borrowed payloads. Retain and Release report 1; Revoke ends the slot.
//
// # Destruction
//
// When the count reaches zero the payload's Drop method runs if it is a
// Dropper, otherwise its Close method if it is an io.Closer.
//
// # Observers
//
// Register observers to track lifecycle events; the returned func cancels
// the subscription:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        log.Printf("asset %d created", e.Handle)
//	    case resource.EventDestroyed:
//	        log.Printf("asset %d destroyed", e.Handle)
//	    }
//	}))
//	defer cancel()
package resource

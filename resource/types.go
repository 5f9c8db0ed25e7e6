package resource

import "github.com/wippyai/script-bridge/abi"

// Handle locates an asset slot in a table.
// Handle 0 is reserved and always invalid.
type Handle = uint32

// Event types for asset lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventDestroyed
	EventRevoked
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDestroyed:
		return "destroyed"
	case EventRevoked:
		return "revoked"
	}
	return "unknown"
}

// Event represents an asset lifecycle event.
type Event struct {
	Payload  any
	Header   *abi.Asset
	TypeName string
	Handle   Handle
	Count    int32
	Type     EventType
}

// Observer receives notifications about asset lifecycle events.
type Observer interface {
	OnAssetEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnAssetEvent(e Event) { f(e) }

// Dropper is optionally implemented by payloads that need cleanup when
// their last reference goes away.
type Dropper interface {
	Drop()
}

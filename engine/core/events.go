package core

import "sync"

type EventContext struct {
	Data struct {
		U32 [4]uint32
		F32 [4]float32
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u32 width = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, data EventContext) bool

type registeredEvent struct {
	id       uint32
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.RWMutex
	nextID     uint32
	registered map[SystemEventCode][]registeredEvent
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[SystemEventCode][]registeredEvent),
	}
	return true
}

func EventSystemShutdown() {
	eventState = nil
}

// EventRegister listens for code and returns an id for EventUnregister. The id is
// zero when the event system is not running.
func EventRegister(code SystemEventCode, onEvent FnOnEvent) uint32 {
	if eventState == nil || onEvent == nil {
		return 0
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	eventState.nextID++
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		id:       eventState.nextID,
		callback: onEvent,
	})
	return eventState.nextID
}

func EventUnregister(code SystemEventCode, id uint32) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i := range events {
		if events[i].id == id {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * TRUE, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.RLock()
	events := append([]registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}

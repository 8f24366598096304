package core

import "testing"

func TestEventFire(t *testing.T) {
	if !EventSystemInitialize() {
		t.Fatal("event system already running")
	}
	defer EventSystemShutdown()

	var width, height uint32
	id := EventRegister(EVENT_CODE_RESIZED, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		width, height = data.Data.U32[0], data.Data.U32[1]
		return true
	})
	if id == 0 {
		t.Fatal("register returned zero id")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 800
	ctx.Data.U32[1] = 600
	if !EventFire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("resize event not handled")
	}
	if width != 800 || height != 600 {
		t.Fatalf("got %dx%d, want 800x600", width, height)
	}

	if EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Fatal("quit handled without listeners")
	}

	if !EventUnregister(EVENT_CODE_RESIZED, id) {
		t.Fatal("unregister failed")
	}
	if EventFire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("event handled after unregister")
	}
}

func TestEventStopsAtFirstHandler(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()

	calls := 0
	EventRegister(EVENT_CODE_APPLICATION_QUIT, func(SystemEventCode, interface{}, EventContext) bool {
		calls++
		return true
	})
	EventRegister(EVENT_CODE_APPLICATION_QUIT, func(SystemEventCode, interface{}, EventContext) bool {
		calls++
		return true
	})
	EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	if calls != 1 {
		t.Fatalf("handlers called %d times, want 1", calls)
	}
}

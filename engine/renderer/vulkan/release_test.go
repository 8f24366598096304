package vulkan

import (
	"reflect"
	"testing"
)

func TestReleaseStackReverseOrder(t *testing.T) {
	var got []int
	var r releaseStack
	for i := 0; i < 4; i++ {
		r.push(func() { got = append(got, i) })
	}
	if r.len() != 4 {
		t.Fatalf("len = %d", r.len())
	}
	r.release()
	if want := []int{3, 2, 1, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	r.release()
	if len(got) != 4 || r.len() != 0 {
		t.Error("second release ran destructors again")
	}
}

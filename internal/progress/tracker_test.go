package progress

import (
	"testing"

	"chatd/pkg/types"
)

func TestTracker_Lifecycle(t *testing.T) {
	var tr Tracker
	tr.Apply(types.InitiateEvent{File: "a", Total: 10})
	tr.Apply(types.InitiateEvent{File: "b"})
	tr.Apply(types.ProgressEvent{File: "a", Progress: 50, Loaded: 5, Total: 10})
	items := tr.Items()
	if len(items) != 2 || items[0].File != "a" || items[0].Progress != 50 || items[0].Loaded != 5 {
		t.Fatalf("items = %+v", items)
	}
	tr.Apply(types.DoneEvent{File: "a"})
	items = tr.Items()
	if len(items) != 1 || items[0].File != "b" {
		t.Fatalf("after done = %+v", items)
	}
}

func TestTracker_ProgressForUnknownIsNoop(t *testing.T) {
	var tr Tracker
	tr.Apply(types.ProgressEvent{File: "ghost", Progress: 10})
	if tr.Len() != 0 {
		t.Fatalf("progress must not create items")
	}
	tr.Apply(types.DoneEvent{File: "ghost"})
	if tr.Len() != 0 {
		t.Fatalf("done for unknown file must be ignored")
	}
}

func TestTracker_DuplicateInitiateOverwrites(t *testing.T) {
	var tr Tracker
	tr.Apply(types.InitiateEvent{File: "a"})
	tr.Apply(types.InitiateEvent{File: "b"})
	tr.Apply(types.ProgressEvent{File: "a", Progress: 70})
	tr.Apply(types.InitiateEvent{File: "a", Total: 3})
	items := tr.Items()
	if len(items) != 2 || items[0].File != "a" || items[0].Progress != 0 || items[0].Total != 3 {
		t.Fatalf("items = %+v", items)
	}
}

func TestTracker_IgnoresOtherEvents(t *testing.T) {
	var tr Tracker
	if tr.Apply(types.ReadyEvent{}) {
		t.Fatalf("ready is not a progress event")
	}
	if !tr.Apply(types.DoneEvent{File: "x"}) {
		t.Fatalf("done is a progress event")
	}
}

func TestTracker_ItemsIsCopy(t *testing.T) {
	var tr Tracker
	tr.Apply(types.InitiateEvent{File: "a"})
	items := tr.Items()
	items[0].File = "mutated"
	if tr.Items()[0].File != "a" {
		t.Fatalf("Items must return a copy")
	}
	tr.Clear()
	if tr.Len() != 0 {
		t.Fatalf("clear failed")
	}
}

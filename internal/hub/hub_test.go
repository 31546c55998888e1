package hub

import (
	"context"
	"testing"

	"github.com/DoyleJ11/dipclient/internal/room"
	"github.com/DoyleJ11/dipclient/internal/scenario"
)

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, nil)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- CreateRoom{Scenario: scenario.Default(), Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRoom{Code: "ABCD", Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
	if r3 := h.Room(ctx, "ABCD"); r3 != r1 {
		t.Fatalf("Room helper returned a different room")
	}
}

func TestHub_CreateIsIdempotent(t *testing.T) {
	h := NewHub(context.Background(), nil)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- CreateRoom{Scenario: scenario.Default(), Reply: reply}
	r1 := <-reply
	h.Inbox() <- CreateRoom{Scenario: scenario.Default(), Reply: reply}
	r2 := <-reply
	if r1 != r2 {
		t.Fatalf("second create should return the existing room")
	}
}

func TestHub_RemoveRoom(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, nil)
	reply := make(chan *room.Room, 1)
	h.Inbox() <- CreateRoom{Scenario: scenario.Default(), Reply: reply}
	<-reply

	h.Inbox() <- RemoveRoom{Code: "ABCD"}
	if r := h.Room(ctx, "ABCD"); r != nil {
		t.Fatalf("expected room to be gone")
	}

	list := make(chan []string, 1)
	h.Inbox() <- ListRooms{Reply: list}
	if codes := <-list; len(codes) != 0 {
		t.Fatalf("expected no rooms, got %v", codes)
	}
}

package relay

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func newBoundHost(t *testing.T, reg *Registry, id string) (*Session, string) {
	t.Helper()
	host := NewSession(nil)
	host.ID = id
	code, err := reg.CreateRoom(host)
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	return host, code
}

func TestCreateRoom(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	if len(code) != roomCodeLength {
		t.Errorf("Expected %d-char room code, got %q", roomCodeLength, code)
	}
	if code != strings.ToUpper(code) {
		t.Errorf("Expected uppercase room code, got %q", code)
	}
	if host.Role != RoleHost {
		t.Errorf("Expected host role, got %v", host.Role)
	}
	if host.RoomCode != code {
		t.Errorf("Expected host bound to %q, got %q", code, host.RoomCode)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", reg.Count())
	}
}

func TestCreateRoomRequiresClientID(t *testing.T) {
	reg := NewRegistry(nil)
	host := NewSession(nil)

	if _, err := reg.CreateRoom(host); !errors.Is(err, ErrMissingClientID) {
		t.Errorf("Expected ErrMissingClientID, got %v", err)
	}
}

func TestCreateRoomRejectsBoundSession(t *testing.T) {
	reg := NewRegistry(nil)
	host, _ := newBoundHost(t, reg, "h1")

	if _, err := reg.CreateRoom(host); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("Expected ErrAlreadyInRoom, got %v", err)
	}
}

func TestRoomCodesUnique(t *testing.T) {
	reg := NewRegistry(nil)
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		host := NewSession(nil)
		host.ID = "h"
		code, err := reg.CreateRoom(host)
		if err != nil {
			t.Fatalf("CreateRoom() failed: %v", err)
		}
		if seen[code] {
			t.Fatalf("Room code %q issued twice while both rooms alive", code)
		}
		seen[code] = true
	}
}

func TestJoinRoom(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	c := NewSession(nil)
	c.ID = "c1"
	snap, err := reg.JoinRoom(code, c)
	if err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	if snap.Host != host {
		t.Error("Join snapshot did not return the room's host")
	}
	if string(snap.GameState) != "{}" {
		t.Errorf("Expected seed game state {}, got %s", snap.GameState)
	}
	if c.Role != RoleClient {
		t.Errorf("Expected client role, got %v", c.Role)
	}
	if c.RoomCode != code {
		t.Errorf("Expected client bound to %q, got %q", code, c.RoomCode)
	}
}

func TestJoinRoomCaseInsensitive(t *testing.T) {
	reg := NewRegistry(nil)
	_, code := newBoundHost(t, reg, "h1")

	c := NewSession(nil)
	c.ID = "c1"
	if _, err := reg.JoinRoom(strings.ToLower(code), c); err != nil {
		t.Fatalf("JoinRoom() with lowercase code failed: %v", err)
	}
	if c.RoomCode != code {
		t.Errorf("Expected binding to canonical code %q, got %q", code, c.RoomCode)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	reg := NewRegistry(nil)

	c := NewSession(nil)
	c.ID = "c1"
	if _, err := reg.JoinRoom("NOSUCH", c); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
	if c.Bound() {
		t.Error("Failed join must not bind the session")
	}
}

func TestJoinSnapshotNotRetroactive(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	c := NewSession(nil)
	c.ID = "c1"
	snap, err := reg.JoinRoom(code, c)
	if err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	// A game state pushed after the join must not alter the snapshot.
	if _, ok := reg.SetGameState(host, json.RawMessage(`{"wave":3}`)); !ok {
		t.Fatal("SetGameState() by host was rejected")
	}
	if string(snap.GameState) != "{}" {
		t.Errorf("Join snapshot mutated retroactively: %s", snap.GameState)
	}
}

func TestSetGameStateHostOnly(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	c := NewSession(nil)
	c.ID = "c1"
	if _, err := reg.JoinRoom(code, c); err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	if _, ok := reg.SetGameState(c, json.RawMessage(`{"cheat":true}`)); ok {
		t.Error("SetGameState() by a client must be rejected")
	}

	// The stored state must be untouched: a fresh joiner still sees the seed.
	c2 := NewSession(nil)
	c2.ID = "c2"
	snap, err := reg.JoinRoom(code, c2)
	if err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}
	if string(snap.GameState) != "{}" {
		t.Errorf("Client write leaked into room state: %s", snap.GameState)
	}

	clients, ok := reg.SetGameState(host, json.RawMessage(`{"wave":1}`))
	if !ok {
		t.Fatal("SetGameState() by host was rejected")
	}
	if len(clients) != 2 {
		t.Errorf("Expected broadcast list of 2 clients, got %d", len(clients))
	}
}

func TestLeaveClient(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	c := NewSession(nil)
	c.ID = "c1"
	if _, err := reg.JoinRoom(code, c); err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	notice, err := reg.Leave(c)
	if err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	if notice.HostLeft {
		t.Error("Client leave reported as host leave")
	}
	if notice.ClientID != "c1" {
		t.Errorf("Expected leaver c1, got %q", notice.ClientID)
	}
	if len(notice.Recipients) != 1 || notice.Recipients[0] != host {
		t.Errorf("Expected only the host to be notified, got %d recipients", len(notice.Recipients))
	}
	if c.Bound() {
		t.Error("Leaver still bound after Leave()")
	}

	// The room survives a client leave.
	info, err := reg.Describe(code)
	if err != nil {
		t.Fatalf("Describe() failed: %v", err)
	}
	if info.ClientCount != 0 {
		t.Errorf("Expected empty room, got %d clients", info.ClientCount)
	}
}

func TestLeaveHostDeletesRoom(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "h1")

	c1 := NewSession(nil)
	c1.ID = "c1"
	c2 := NewSession(nil)
	c2.ID = "c2"
	if _, err := reg.JoinRoom(code, c1); err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}
	if _, err := reg.JoinRoom(code, c2); err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	notice, err := reg.Leave(host)
	if err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	if !notice.HostLeft {
		t.Error("Host leave not reported as host leave")
	}
	if len(notice.Recipients) != 2 {
		t.Errorf("Expected 2 clients notified, got %d", len(notice.Recipients))
	}

	if _, err := reg.Describe(code); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected room gone after host leave, got %v", err)
	}

	// The old code is dead for joins.
	late := NewSession(nil)
	late.ID = "late"
	if _, err := reg.JoinRoom(code, late); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound joining dead code, got %v", err)
	}
}

func TestLeaveUnbound(t *testing.T) {
	reg := NewRegistry(nil)
	s := NewSession(nil)
	s.ID = "s"
	if _, err := reg.Leave(s); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("Expected ErrNotInRoom, got %v", err)
	}
}

// TestHostLeaveJoinRace drives concurrent joins against a host teardown:
// every join either fails with ErrRoomNotFound or its session is included
// in the teardown notification. No joiner may slip into the room unseen.
func TestHostLeaveJoinRace(t *testing.T) {
	const joiners = 32

	for round := 0; round < 50; round++ {
		reg := NewRegistry(nil)
		host, code := newBoundHost(t, reg, "h1")

		var wg sync.WaitGroup
		results := make([]error, joiners)
		sessions := make([]*Session, joiners)

		start := make(chan struct{})
		for i := 0; i < joiners; i++ {
			i := i
			s := NewSession(nil)
			s.ID = string(rune('a' + i))
			sessions[i] = s
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, results[i] = reg.JoinRoom(code, s)
			}()
		}

		var notice LeaveNotice
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			notice, _ = reg.Leave(host)
		}()

		close(start)
		wg.Wait()

		notified := make(map[*Session]bool)
		for _, s := range notice.Recipients {
			notified[s] = true
		}
		for i, err := range results {
			if err == nil && !notified[sessions[i]] {
				t.Fatalf("Joiner %d admitted into a room being destroyed without notification", i)
			}
			if err != nil && !errors.Is(err, ErrRoomNotFound) {
				t.Fatalf("Joiner %d got unexpected error: %v", i, err)
			}
		}
		if _, err := reg.Describe(code); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("Room still reachable after host leave")
		}
	}
}

func TestListRooms(t *testing.T) {
	reg := NewRegistry(nil)
	_, code1 := newBoundHost(t, reg, "h1")
	_, code2 := newBoundHost(t, reg, "h2")

	infos := reg.ListRooms()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(infos))
	}
	if infos[0].Code > infos[1].Code {
		t.Error("ListRooms() not sorted by code")
	}

	want := map[string]bool{code1: true, code2: true}
	for _, info := range infos {
		if !want[info.Code] {
			t.Errorf("Unexpected room %q in listing", info.Code)
		}
	}

	if reg.SessionCount() != 2 {
		t.Errorf("Expected 2 bound sessions, got %d", reg.SessionCount())
	}
}

func TestRoleString(t *testing.T) {
	if RoleHost.String() != "host" || RoleClient.String() != "client" || RoleNone.String() != "none" {
		t.Error("Role names changed; logs depend on them")
	}
}

func TestReleaseStaleBinding(t *testing.T) {
	reg := NewRegistry(nil)
	host, code := newBoundHost(t, reg, "host-1")

	c := NewSession(nil)
	c.ID = "c1"
	if _, err := reg.JoinRoom(code, c); err != nil {
		t.Fatalf("JoinRoom() failed: %v", err)
	}

	// A live member's binding is untouched.
	reg.ReleaseStale(c)
	if !c.Bound() {
		t.Fatal("Live binding released")
	}

	// Host teardown sweeps the client out of the room but its socket stays
	// open; the next room request releases the stale binding.
	if _, err := reg.Leave(host); err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	reg.ReleaseStale(c)
	if c.Bound() {
		t.Fatal("Stale binding survived release")
	}

	if _, err := reg.CreateRoom(c); err != nil {
		t.Errorf("Released session should be able to host a new room: %v", err)
	}
}

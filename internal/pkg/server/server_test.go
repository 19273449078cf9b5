package server

import (
	"context"
	"strings"
	"testing"
)

func TestFlagAndNetwork(t *testing.T) {
	if FlagFromString("WORKER") != FlagWorker || FlagFromString("anything") != FlagMonitor {
		t.Error("FlagFromString mismatch")
	}
	for _, n := range []Network{NetworkTCP, NetworkTCP4, NetworkUnix} {
		if NetworkFromString(n.String()) != n {
			t.Errorf("network %s does not round trip", n)
		}
	}
	if !strings.HasPrefix(Network(9).String(), "unknown") {
		t.Error("unknown network not reported")
	}
}

func TestNewRejectsBadPort(t *testing.T) {
	if _, err := New(WithPort(70000)); err == nil {
		t.Error("port 70000 accepted")
	}
}

func TestUnixDefaultSocket(t *testing.T) {
	s, err := New(WithNetwork(NetworkUnix), WithAddr(""))
	if err != nil {
		t.Fatal(err)
	}
	if s.address() != DefaultSocketName() {
		t.Errorf("address = %q, want %q", s.address(), DefaultSocketName())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := New(WithNetwork(NetworkTCP), WithAddr("127.0.0.1"), WithPort(0))
	if err != nil {
		t.Fatal(err)
	}
	if s.Addr() != nil {
		t.Error("Addr set before Listen")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Serve(ctx); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if s.Addr() == nil {
		t.Error("Addr not set after Serve")
	}
}

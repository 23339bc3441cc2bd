package metrics

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestStartServerEmptyAddrDisabled(t *testing.T) {
	// Must return immediately without touching the network.
	StartServer("")
}

func TestStartServerBindFailureReturns(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// The port is taken; the bind fails synchronously and the daemon
	// keeps running with the failure in the log.
	StartServer(ln.Addr().String())
}

func TestStartServerServesHealth(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	StartServer(addr)

	url := fmt.Sprintf("http://%s/health", addr)
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("health status = %d", resp.StatusCode)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health endpoint never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package probe

import "testing"

func TestDialerForWithNoProxyUsesDefault(t *testing.T) {
	dial, err := DialerFor(ProxyOptions{})
	if err != nil {
		t.Fatalf("DialerFor: %v", err)
	}
	if dial == nil {
		t.Fatalf("expected a non-nil dial function")
	}
}

func TestDialerForRejectsInvalidProxyAddress(t *testing.T) {
	_, err := DialerFor(ProxyOptions{Addr: "not-a-host-port"})
	if err == nil {
		t.Fatalf("expected an error for an invalid proxy address")
	}
}

func TestDialerForWithProxyReturnsProxyDialer(t *testing.T) {
	dial, err := DialerFor(ProxyOptions{Addr: "127.0.0.1:9050"})
	if err != nil {
		t.Fatalf("DialerFor: %v", err)
	}
	if dial == nil {
		t.Fatalf("expected a non-nil proxy dial function")
	}
}

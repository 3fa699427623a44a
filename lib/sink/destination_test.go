package sink

import (
	"testing"
	"time"
)

func TestNewRedisSink(t *testing.T) {
	r := newRedisSink(WithHost("cache.local", ""), WithDatabase(3), WithUserPass("", "pw"), WithTTL(30*time.Second))
	defer r.Stop()

	opts := r.client.Options()
	if "cache.local:6379" != opts.Addr {
		t.Errorf("addr %s", opts.Addr)
	}
	if 3 != opts.DB || "pw" != opts.Password {
		t.Errorf("db %d password %s", opts.DB, opts.Password)
	}
	if 30*time.Second != r.ttl {
		t.Errorf("ttl %s", r.ttl)
	}
	if DefaultSubject != r.subject {
		t.Errorf("subject %s", r.subject)
	}
}

func TestNatsSink_ServerUrl(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{name: "Default Port", opts: []Option{WithHost("broker", "")}, want: "nats://broker:4222"},
		{name: "User Pass", opts: []Option{WithHost("broker", "4333"), WithUserPass("cam", "pw")}, want: "nats://cam:pw@broker:4333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &NatsSink{}
			n.setupConfig(tt.opts)
			if got := n.serverUrl(); got != tt.want {
				t.Errorf("serverUrl() = %s, want %s", got, tt.want)
			}
		})
	}
}

// internal/poller/builder_test.go
package poller

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/tamzrod/powerlog/internal/clock"
	cfg "github.com/tamzrod/powerlog/internal/config"
	"github.com/tamzrod/powerlog/internal/device"
)

func TestDialer_UnknownDriver(t *testing.T) {
	c := &cfg.Config{DeviceDriver: "zigbee"}
	if _, err := Dialer(c, clock.Real()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestDialer_KnownDrivers(t *testing.T) {
	for _, d := range []string{cfg.DriverTuya, cfg.DriverModbus} {
		dial, err := Dialer(&cfg.Config{DeviceDriver: d}, clock.Real())
		if err != nil || dial == nil {
			t.Fatalf("%s: dial=%v err=%v", d, dial, err)
		}
	}
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestBuild_UnreachableDeviceIsNotFatal(t *testing.T) {
	interval := 2
	c := &cfg.Config{
		SampleIntervalSeconds: &interval,
		DeviceDriver:          cfg.DriverTuya,
		DeviceID:              "bf0123456789abcdef",
		DeviceAddress:         closedAddr(t),
		DeviceLocalKey:        "0123456789abcdef",
		DeviceProtocolVersion: "3.3",
		DeviceTimeoutMs:       200,
		PowerField:            "19",
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, closeFn, err := Build(context.Background(), c, clock.Real(), log)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer closeFn()

	start := time.Now()
	m := r.Read(context.Background())
	if m.Valid {
		t.Fatalf("expected invalid measurement from unreachable device")
	}
	if _, ok := m.Err.(*device.ConnectionError); !ok {
		t.Fatalf("expected ConnectionError, got %T %v", m.Err, m.Err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("read of an unreachable device took %v", time.Since(start))
	}
}

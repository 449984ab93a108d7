package snmp

import (
	"context"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestCounterValue(t *testing.T) {
	cases := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want int64
		ok   bool
	}{
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 1250}, 1250, true},
		{"counter32", gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint(48211)}, 48211, true},
		{"counter64", gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(1 << 40)}, 1 << 40, true},
		{"negative", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -3}, 0, false},
		{"no such object", gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, 0, false},
		{"string", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("1250")}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := counterValue(tc.pdu)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReadCounterCancelledContext(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.Retries = 0
	client := NewClient(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := client.ReadCounter(ctx, "127.0.0.1")
	assert.False(t, ok)
}

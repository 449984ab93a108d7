// Package snmp reads lifetime page counters from network printers.
package snmp

import (
	"context"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/sirupsen/logrus"
)

// OIDTotalPages is prtMarkerLifeCount for the first marker of the first device
// (Printer-MIB, RFC 3805).
const OIDTotalPages = "1.3.6.1.2.1.43.10.2.1.4.1.1"

// Config holds the SNMP session parameters shared by every printer
type Config struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// DefaultConfig matches the factory settings of most office printers
func DefaultConfig() Config {
	return Config{
		Community: "public",
		Port:      161,
		Timeout:   2 * time.Second,
		Retries:   1,
	}
}

// Client queries printers with SNMP v1 GET requests
type Client struct {
	cfg Config
	log logrus.FieldLogger
}

// NewClient creates a new SNMP client
func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	return &Client{
		cfg: cfg,
		log: log.WithField("component", "snmp"),
	}
}

// ReadCounter returns the printer's total page count. Any failure, including
// an unreachable device, is reported as ok=false and never as an error.
func (c *Client) ReadCounter(ctx context.Context, address string) (int64, bool) {
	g := &gosnmp.GoSNMP{
		Target:    address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   gosnmp.Version1,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
		Context:   ctx,
	}

	log := c.log.WithField("address", address)
	if err := g.Connect(); err != nil {
		log.WithError(err).Warn("connection error")
		return 0, false
	}
	defer g.Conn.Close()

	packet, err := g.Get([]string{OIDTotalPages})
	if err != nil {
		log.WithError(err).Warn("snmp get failed")
		return 0, false
	}
	if packet.Error != gosnmp.NoError {
		log.WithField("status", packet.Error.String()).Warn("snmp error status")
		return 0, false
	}
	if len(packet.Variables) == 0 {
		log.Warn("snmp response without variables")
		return 0, false
	}

	return counterValue(packet.Variables[0])
}

// counterValue converts a varbind to a page count. Missing objects and
// non-numeric types count as no value.
func counterValue(pdu gosnmp.SnmpPDU) (int64, bool) {
	switch pdu.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64, gosnmp.Uinteger32, gosnmp.TimeTicks:
	default:
		return 0, false
	}

	v := gosnmp.ToBigInt(pdu.Value)
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

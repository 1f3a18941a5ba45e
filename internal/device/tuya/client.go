// internal/device/tuya/client.go
package tuya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tamzrod/powerlog/internal/device"
)

// DefaultPort is the Tuya local-control TCP port.
const DefaultPort = "6668"

// maxReplies bounds how many unrelated frames (heartbeats, acks)
// are skipped while waiting for a status reply.
const maxReplies = 4

// Config is minimal session config.
type Config struct {
	ID       string
	Address  string // host or host:port
	LocalKey string
	Version  string // "3.1", "3.3" or "3.4"

	// Now stamps DP_QUERY requests. Defaults to time.Now.
	Now func() time.Time
}

// Client is one persistent session to a Tuya device.
// It is not safe for concurrent use.
type Client struct {
	cfg  Config
	conn net.Conn
	seq  uint32

	localKey []byte
	local    *ecb

	// protocol 3.4 only
	sessionKey []byte
	session    *ecb
}

// Dial connects to the device and, for protocol 3.4, negotiates a session key.
// ONE attempt per call.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("tuya: address required")
	}
	if len(cfg.LocalKey) != 16 {
		return nil, errors.New("tuya: local key must be 16 bytes")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	addr := cfg.Address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	local, err := newECB([]byte(cfg.LocalKey))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		conn:     conn,
		localKey: []byte(cfg.LocalKey),
		local:    local,
	}

	if cfg.Version == "3.4" {
		if err := c.negotiate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tuya: session key negotiation: %w", err)
		}
	}
	return c, nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Status queries the current data points.
func (c *Client) Status(ctx context.Context) (device.Payload, error) {
	stop := c.bind(ctx)
	defer stop()

	cmd, body, err := c.queryRequest()
	if err != nil {
		return nil, err
	}
	if err := c.send(cmd, c.encode(body), c.macKey()); err != nil {
		return nil, err
	}

	for i := 0; i < maxReplies; i++ {
		m, err := readMessage(c.conn, c.macKey())
		if err != nil {
			return nil, err
		}

		switch m.cmd {
		case cmdDPQuery, cmdDPQueryNew, cmdStatus:
		case cmdHeartBeat:
			continue
		default:
			continue // unrelated ack
		}
		if len(m.payload) == 0 {
			continue // some 3.4 firmwares ack first, then push STATUS
		}
		if m.retcode != 0 {
			return nil, fmt.Errorf("tuya: device returned code %d", m.retcode)
		}

		plain, err := c.decode(m.payload)
		if err != nil {
			return nil, err
		}
		return extractDPS(plain)
	}

	return nil, errors.New("tuya: no status reply")
}

// ---- request/response helpers ----

type dpQuery struct {
	GwID  string `json:"gwId"`
	DevID string `json:"devId"`
	UID   string `json:"uid"`
	T     string `json:"t"`
}

func (c *Client) queryRequest() (uint32, []byte, error) {
	if c.cfg.Version == "3.4" {
		return cmdDPQueryNew, []byte("{}"), nil
	}
	body, err := json.Marshal(dpQuery{
		GwID:  c.cfg.ID,
		DevID: c.cfg.ID,
		UID:   c.cfg.ID,
		T:     strconv.FormatInt(c.cfg.Now().Unix(), 10),
	})
	return cmdDPQuery, body, err
}

func (c *Client) encode(body []byte) []byte {
	switch c.cfg.Version {
	case "3.4":
		return c.session.encrypt(body, true)
	case "3.3":
		return c.local.encrypt(body, true)
	default:
		return body
	}
}

func (c *Client) decode(payload []byte) ([]byte, error) {
	switch c.cfg.Version {
	case "3.4":
		plain, err := c.session.decrypt(payload, true)
		if err != nil {
			return nil, err
		}
		return stripVersionHeader(plain, c.cfg.Version), nil

	case "3.3":
		return c.local.decrypt(stripVersionHeader(payload, c.cfg.Version), true)

	default:
		if len(payload) == 0 || payload[0] != '{' {
			return nil, errors.New("tuya: unexpected 3.1 payload")
		}
		return payload, nil
	}
}

// stripVersionHeader removes "3.x" followed by 12 reserved bytes.
func stripVersionHeader(b []byte, version string) []byte {
	const headerLen = 3 + 12
	if len(b) >= headerLen && bytes.HasPrefix(b, []byte(version)) {
		return b[headerLen:]
	}
	return b
}

func extractDPS(plain []byte) (device.Payload, error) {
	var env struct {
		DPS  map[string]any `json:"dps"`
		Data struct {
			DPS map[string]any `json:"dps"`
		} `json:"data"`
	}
	// Numbers stay json.Number so integer readings are not rounded through float64.
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimRight(plain, "\x00")))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("tuya: malformed status: %w", err)
	}

	switch {
	case env.DPS != nil:
		return device.Payload(env.DPS), nil
	case env.Data.DPS != nil:
		return device.Payload(env.Data.DPS), nil
	default:
		return device.Payload{}, nil
	}
}

// negotiate runs the 3.4 three-step session key exchange.
func (c *Client) negotiate(ctx context.Context) error {
	stop := c.bind(ctx)
	defer stop()

	localNonce := make([]byte, 16)
	if _, err := rand.Read(localNonce); err != nil {
		return err
	}

	if err := c.send(cmdSessKeyNegStart, c.local.encrypt(localNonce, true), c.localKey); err != nil {
		return err
	}

	m, err := readMessage(c.conn, c.localKey)
	if err != nil {
		return err
	}
	if m.cmd != cmdSessKeyNegResp {
		return fmt.Errorf("unexpected command 0x%02x", m.cmd)
	}

	plain, err := c.local.decrypt(m.payload, false)
	if err != nil {
		return err
	}
	if len(plain) < 16+hmacLen {
		return errors.New("short negotiation response")
	}
	remoteNonce := plain[:16]
	if !hmac.Equal(plain[16:16+hmacLen], sign(c.localKey, localNonce)) {
		return errors.New("device failed to prove the local key")
	}

	if err := c.send(cmdSessKeyNegFinish, c.local.encrypt(sign(c.localKey, remoteNonce), true), c.localKey); err != nil {
		return err
	}

	c.sessionKey = c.local.encrypt(xor(localNonce, remoteNonce), false)
	c.session, err = newECB(c.sessionKey)
	return err
}

func (c *Client) send(cmd uint32, payload, hmacKey []byte) error {
	c.seq++
	_, err := c.conn.Write(pack(message{seq: c.seq, cmd: cmd, payload: payload}, hmacKey))
	return err
}

func (c *Client) macKey() []byte {
	if c.cfg.Version == "3.4" {
		return c.sessionKey
	}
	return nil
}

// bind applies the context deadline to the connection and interrupts
// blocked I/O on cancellation.
func (c *Client) bind(ctx context.Context) func() bool {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
}

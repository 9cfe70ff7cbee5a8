package eip

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultPort is the registered EtherNet/IP TCP port.
const DefaultPort uint16 = 44818

// Client is one EtherNet/IP session over a TCP connection. All exchanges
// are strictly request/reply: the mutex serializes transactions so only
// one request is ever outstanding.
type Client struct {
	addr    string
	port    uint16
	conn    net.Conn
	session uint32
	timeout time.Duration
	log     *slog.Logger
	mu      sync.Mutex
}

// NewClient creates a client for the default port. It does not connect.
func NewClient(addr string) *Client {
	return NewClientWithPort(addr, DefaultPort)
}

// NewClientWithPort creates a client for a custom port.
func NewClientWithPort(addr string, port uint16) *Client {
	return &Client{
		addr:    addr,
		port:    port,
		timeout: 5 * time.Second,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger installs a structured logger for wire-level diagnostics.
func (e *Client) SetLogger(log *slog.Logger) {
	if log == nil {
		return
	}
	e.mu.Lock()
	e.log = log
	e.mu.Unlock()
}

// SetTimeout sets the per-transaction read/write deadline.
func (e *Client) SetTimeout(d time.Duration) {
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// Addr returns the target address.
func (e *Client) Addr() string {
	return e.addr
}

// Session returns the registered session handle, 0 if unregistered.
func (e *Client) Session() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// IsConnected reports whether a TCP connection is up.
func (e *Client) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// Connect dials the target and registers a session.
func (e *Client) Connect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	target := net.JoinHostPort(e.addr, strconv.Itoa(int(e.port)))
	d := net.Dialer{Timeout: e.timeout}
	conn, err := d.Dial("tcp", target)
	if err != nil {
		return fmt.Errorf("eip: connect %s: %w", target, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(30 * time.Second)
	}

	oldConn, oldSession := e.conn, e.session
	e.conn = conn
	e.session = 0

	session, err := e.registerSession()
	if err != nil {
		e.conn = oldConn
		e.session = oldSession
		_ = conn.Close()
		return fmt.Errorf("eip: register session: %w", err)
	}
	e.session = session
	e.log.Debug("session registered", "target", target, "session", fmt.Sprintf("0x%08X", session))

	if oldConn != nil {
		_ = oldConn.Close()
	}
	return nil
}

// Disconnect unregisters the session best-effort and closes the socket.
func (e *Client) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		e.session = 0
		return nil
	}

	if e.session != 0 {
		msg := encap{command: CmdUnRegisterSession, sessionHandle: e.session}
		_ = e.conn.SetWriteDeadline(time.Now().Add(e.timeout))
		_ = e.send(msg)
	}

	err := e.conn.Close()
	e.conn = nil
	e.session = 0
	return err
}

// SendNop sends the encapsulation No-Op, useful as a liveness probe.
func (e *Client) SendNop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return fmt.Errorf("eip: nop: not connected")
	}
	msg := encap{command: CmdNop, sessionHandle: e.session}
	_ = e.conn.SetWriteDeadline(time.Now().Add(e.timeout))
	defer e.conn.SetWriteDeadline(time.Time{})
	return e.send(msg)
}

// SendRRData sends an unconnected explicit message and blocks for the
// reply packet. Requires a registered session.
func (e *Client) SendRRData(packet *CommonPacket) (*CommonPacket, error) {
	return e.transactPacket(CmdSendRRData, packet)
}

// SendUnitData sends a connected explicit message and blocks for the
// reply packet. Requires a registered session.
func (e *Client) SendUnitData(packet *CommonPacket) (*CommonPacket, error) {
	return e.transactPacket(CmdSendUnitData, packet)
}

func (e *Client) transactPacket(command uint16, packet *CommonPacket) (*CommonPacket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return nil, fmt.Errorf("eip: not connected")
	}
	if e.session == 0 {
		return nil, fmt.Errorf("eip: no registered session")
	}

	cmd := commandData{packet: packet.Bytes()}
	body := cmd.bytes()

	resp, err := e.transact(encap{
		command:       command,
		length:        uint16(len(body)),
		sessionHandle: e.session,
		data:          body,
	})
	if err != nil {
		return nil, err
	}
	if resp.status != 0 {
		return nil, fmt.Errorf("eip: encapsulation status 0x%08X", resp.status)
	}

	cdata, err := parseCommandData(resp.data)
	if err != nil {
		return nil, err
	}
	return ParseCommonPacket(cdata.packet)
}

func (e *Client) registerSession() (uint32, error) {
	// Protocol version 1, options 0.
	msg := encap{
		command: CmdRegisterSession,
		length:  4,
		data:    []byte{1, 0, 0, 0},
	}

	resp, err := e.transact(msg)
	if err != nil {
		return 0, err
	}
	if resp.status != 0 {
		return 0, fmt.Errorf("encapsulation status 0x%08X", resp.status)
	}
	if resp.sessionHandle == 0 {
		return 0, fmt.Errorf("controller returned session handle 0")
	}
	return resp.sessionHandle, nil
}

// transact performs one framed send/receive with deadlines.
// Callers must hold the mutex.
func (e *Client) transact(msg encap) (*encap, error) {
	if e.conn == nil {
		return nil, fmt.Errorf("eip: not connected")
	}

	_ = e.conn.SetWriteDeadline(time.Now().Add(e.timeout))
	defer e.conn.SetWriteDeadline(time.Time{})
	if err := e.send(msg); err != nil {
		return nil, fmt.Errorf("eip: send: %w", err)
	}

	_ = e.conn.SetReadDeadline(time.Now().Add(e.timeout))
	defer e.conn.SetReadDeadline(time.Time{})
	resp, err := e.recv()
	if err != nil {
		return nil, fmt.Errorf("eip: receive: %w", err)
	}
	return resp, nil
}

func (e *Client) send(msg encap) error {
	data := msg.bytes()
	e.log.Debug("tx", "command", fmt.Sprintf("0x%04X", msg.command), "bytes", len(data))
	_, err := e.conn.Write(data)
	return err
}

func (e *Client) recv() (*encap, error) {
	header := make([]byte, encapHeaderLen)
	if _, err := io.ReadFull(e.conn, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	payloadLen := binary.LittleEndian.Uint16(header[2:4])
	sessionHandle := binary.LittleEndian.Uint32(header[4:8])

	if payloadLen > 65511 {
		return nil, fmt.Errorf("excessive payload length %d", payloadLen)
	}
	// Session 0 in a response is valid; otherwise it must match ours.
	if sessionHandle != 0 && e.session != 0 && sessionHandle != e.session {
		return nil, fmt.Errorf("session mismatch: want 0x%08X, got 0x%08X", e.session, sessionHandle)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(e.conn, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var ctx [8]byte
	copy(ctx[:], header[12:20])

	resp := &encap{
		command:       binary.LittleEndian.Uint16(header[:2]),
		length:        payloadLen,
		sessionHandle: sessionHandle,
		status:        binary.LittleEndian.Uint32(header[8:12]),
		context:       ctx,
		options:       binary.LittleEndian.Uint32(header[20:24]),
		data:          payload,
	}
	e.log.Debug("rx", "command", fmt.Sprintf("0x%04X", resp.command), "status", resp.status, "bytes", len(payload))
	return resp, nil
}

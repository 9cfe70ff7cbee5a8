package logix

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"

	"taglink/cip"
	"taglink/eip"
)

// defaultPayloadLimit is a conservative CIP payload budget for
// unconnected messaging.
const defaultPayloadLimit = 480

// connSizeHeadroom is subtracted from a negotiated connection size to
// leave room for protocol overhead.
const connSizeHeadroom = 100

// Client executes tag operations against one controller over an
// EtherNet/IP session. It owns no connection state beyond what the
// session and the optional CIP connection carry; one request is in
// flight at a time.
type Client struct {
	session *eip.Client
	route   []byte          // Unconnected Send route, empty for direct messaging
	conn    *cip.Connection // non-nil enables connected messaging
	limit   int             // explicit payload limit override
	log     *slog.Logger

	// Resolved tag types, filled in as reads complete.
	types *xsync.MapOf[string, TypeInfo]
}

// Option configures a Client.
type Option func(*Client)

// WithLogger installs a structured logger scoped to this client.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRoutePath routes requests through the Connection Manager, for
// targets behind a gateway or communication module.
func WithRoutePath(path []byte) Option {
	return func(c *Client) { c.route = path }
}

// WithSlotRouting routes through backplane port 1 to a CPU slot, the
// usual path for ControlLogix behind an Ethernet module.
func WithSlotRouting(slot byte) Option {
	return func(c *Client) { c.route = []byte{0x01, slot} }
}

// WithConnection enables connected messaging over an established CIP
// connection. Negotiating the connection is the caller's job.
func WithConnection(conn *cip.Connection) Option {
	return func(c *Client) { c.conn = conn }
}

// WithPayloadLimit overrides the negotiated maximum CIP payload size.
func WithPayloadLimit(n int) Option {
	return func(c *Client) { c.limit = n }
}

// NewClient wraps an EtherNet/IP session. The session's lifecycle
// (Connect/Disconnect) stays with the caller.
func NewClient(session *eip.Client, opts ...Option) *Client {
	c := &Client{
		session: session,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		types:   xsync.NewMapOf[string, TypeInfo](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PayloadLimit returns the maximum CIP payload size for one message.
func (c *Client) PayloadLimit() int {
	if c.limit > 0 {
		return c.limit
	}
	if c.conn != nil && int(c.conn.Size) > connSizeHeadroom {
		return int(c.conn.Size) - connSizeHeadroom
	}
	return defaultPayloadLimit
}

// RoundTrip sends one CIP request and blocks for the raw reply, using
// connected messaging when a CIP connection is present, otherwise routed
// or direct unconnected messaging.
func (c *Client) RoundTrip(request []byte) ([]byte, error) {
	if c.session == nil {
		return nil, fmt.Errorf("logix: nil session")
	}

	if c.conn != nil {
		packet := eip.ConnectedPacket(c.conn.OTConnID, c.conn.WrapConnected(request))
		resp, err := c.session.SendUnitData(packet)
		if err != nil {
			return nil, err
		}
		if len(resp.Items) < 2 {
			return nil, fmt.Errorf("logix: expected 2 CPF items, got %d", len(resp.Items))
		}
		_, payload, err := c.conn.UnwrapConnected(resp.Items[1].Data)
		return payload, err
	}

	if len(c.route) > 0 {
		request = wrapUnconnectedSend(request, c.route)
	}

	resp, err := c.session.SendRRData(eip.UnconnectedPacket(request))
	if err != nil {
		return nil, err
	}
	if len(resp.Items) < 2 {
		return nil, fmt.Errorf("logix: expected 2 CPF items, got %d", len(resp.Items))
	}

	reply := resp.Items[1].Data
	if len(c.route) > 0 {
		return unwrapUnconnectedSend(reply)
	}
	return reply, nil
}

// ReadTag reads one element of a tag.
func (c *Client) ReadTag(tag string) (*TagValue, error) {
	return c.ReadCount(tag, 1)
}

// ReadCount reads elements of a tag. If the target reports a partial
// transfer, the read is retried through the fragmented service and
// reassembled transparently.
func (c *Client) ReadCount(tag string, elements uint16) (*TagValue, error) {
	op := &Operation{Kind: KindRead, Tag: tag, Elements: elements}
	req, err := BuildRead(op)
	if err != nil {
		return nil, err
	}

	raw, err := c.RoundTrip(req.Marshal())
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", tag, err)
	}

	result := ParseReadReply(op, raw)
	if result.Reply != nil && result.Reply.Partial() {
		c.log.Debug("partial transfer, switching to fragmented read", "tag", tag)
		return c.ReadFragmented(tag, elements)
	}
	if !result.OK() {
		return nil, result.Err
	}

	c.cacheType(tag, result.Value)
	return result.Value, nil
}

// ReadFragmented reads a tag through the Read Tag Fragmented service,
// looping round trips until the transfer completes.
func (c *Client) ReadFragmented(tag string, elements uint16) (*TagValue, error) {
	op := &Operation{Kind: KindReadFragmented, Tag: tag, Elements: elements}
	result := ExecuteReadFragmented(c, op, c.log)
	if !result.OK() {
		return nil, result.Err
	}
	c.cacheType(tag, result.Value)
	return result.Value, nil
}

// WriteTag writes one element of a tag. The value must already be the
// raw little-endian wire bytes for the type.
func (c *Client) WriteTag(tag string, t TypeInfo, value []byte) error {
	return c.WriteCount(tag, t, value, 1)
}

// WriteCount writes elements of a tag. Transfers that do not fit the
// payload limit are split through the Write Tag Fragmented service.
func (c *Client) WriteCount(tag string, t TypeInfo, value []byte, elements uint16) error {
	op := &Operation{Kind: KindWrite, Tag: tag, Elements: elements, Type: t, Value: value}
	req, err := BuildWrite(op)
	if err != nil {
		return err
	}

	if len(req.Marshal()) > c.PayloadLimit() {
		c.log.Debug("oversized write, switching to fragmented", "tag", tag, "bytes", len(value))
		op.Kind = KindWriteFragmented
		result := ExecuteWriteFragmented(c, op, c.log)
		return result.Err
	}

	raw, err := c.RoundTrip(req.Marshal())
	if err != nil {
		return fmt.Errorf("write %q: %w", tag, err)
	}
	return ParseWriteReply(op, raw).Err
}

// WriteValue packs a Go value for the type and writes it.
func (c *Client) WriteValue(tag string, t TypeInfo, value interface{}) error {
	code, ok := t.Code()
	if !ok {
		return fmt.Errorf("write %q: unsupported data type %q", tag, t.Name)
	}
	raw, err := Pack(code, value)
	if err != nil {
		return fmt.Errorf("write %q: %w", tag, err)
	}
	return c.WriteTag(tag, t, raw)
}

// WriteBits applies bit-level writes to a tag in one masked write.
// The bits map is index -> desired value.
func (c *Client) WriteBits(tag string, t TypeInfo, bits map[int]bool) error {
	if len(bits) == 0 {
		return fmt.Errorf("write bits %q: no bits given", tag)
	}
	m, err := NewMaskedWrite(tag, t, 0)
	if err != nil {
		return err
	}
	for bit, value := range bits {
		m.SetBit(bit, value)
	}
	return m.Execute(c).Err
}

// ReadMulti reads several tags in one Multiple Service Packet. The
// combined request must fit the payload limit; callers should retry with
// fewer operations when it does not.
func (c *Client) ReadMulti(ops []*Operation) ([]*Result, error) {
	req, err := BuildMulti(ops)
	if err != nil {
		return nil, err
	}

	msg := req.Marshal()
	if len(msg) > c.PayloadLimit() {
		return nil, fmt.Errorf("multi service request is %d bytes, exceeds payload limit %d: batch fewer operations",
			len(msg), c.PayloadLimit())
	}

	raw, err := c.RoundTrip(msg)
	if err != nil {
		return nil, fmt.Errorf("multi service read: %w", err)
	}

	results, err := ParseMulti(ops, raw)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.OK() {
			c.cacheType(r.Tag, r.Value)
		}
	}
	return results, nil
}

// TypeOf returns the cached type of a tag, resolved by an earlier read.
func (c *Client) TypeOf(tag string) (TypeInfo, bool) {
	return c.types.Load(tag)
}

func (c *Client) cacheType(tag string, v *TagValue) {
	if v == nil {
		return
	}
	if v.IsStructure() {
		c.types.Store(tag, StructType(v.Handle, 0))
		return
	}
	base := v.DataType & 0x0FFF
	if size := TypeSize(base); size > 0 {
		c.types.Store(tag, TypeInfo{Name: TypeName(base), Size: size})
	}
}

// wrapUnconnectedSend wraps a CIP request in an Unconnected Send to the
// Connection Manager so it can be routed to the target.
// Structure: [priority/tick 1] [timeout ticks 1] [size 2] [request n]
// [pad 0|1] [route words 1] [reserved 1] [route n]
func wrapUnconnectedSend(request, route []byte) []byte {
	ucmm := make([]byte, 0, 4+len(request)+3+len(route))
	ucmm = append(ucmm, 0x0A) // 160ms tick
	ucmm = append(ucmm, 0x05) // 5 ticks
	ucmm = binary.LittleEndian.AppendUint16(ucmm, uint16(len(request)))
	ucmm = append(ucmm, request...)
	if len(request)%2 != 0 {
		ucmm = append(ucmm, 0x00)
	}
	ucmm = append(ucmm, byte(len(route)/2))
	ucmm = append(ucmm, 0x00)
	ucmm = append(ucmm, route...)

	cmPath, _ := cip.Path().Class(cip.ClassConnectionManager).Instance(cip.InstanceConnectionManager).Build()
	return cip.Request{Service: cip.SvcUnconnectedSend, Path: cmPath, Data: ucmm}.Marshal()
}

// unwrapUnconnectedSend checks a routed reply for routing failures. On
// success the router forwards the embedded service's own reply, so the
// raw bytes pass through untouched. The Unconnected Send service code is
// shared with Read Tag Fragmented; a good status means the reply belongs
// to the embedded service, not the router.
func unwrapUnconnectedSend(raw []byte) ([]byte, error) {
	reply, err := cip.ParseReply(raw)
	if err != nil {
		return nil, err
	}
	if reply.Service == cip.SvcUnconnectedSend|cip.ReplyMask {
		if err := reply.StatusError(); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

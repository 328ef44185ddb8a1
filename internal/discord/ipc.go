package discord

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Discord IPC opcodes.
const (
	opHandshake = 0
	opFrame     = 1
	opClose     = 2
)

// maxFrameSize bounds the payload length accepted from the socket.
// Discord replies are a few KiB at most.
const maxFrameSize = 64 * 1024

// ErrNotConnected is returned by IPCClient operations before Connect
// succeeds or after Close.
var ErrNotConnected = errors.New("discord: not connected")

// IPCClient talks to the local Discord client over its IPC socket.
// It implements Transport.
type IPCClient struct {
	appID string
	conn  net.Conn
	dial  func() (net.Conn, error)
}

// NewIPCClient returns a disconnected client that dials the first
// discord-ipc socket it finds.
func NewIPCClient() *IPCClient {
	return &IPCClient{dial: dialSocket}
}

// Connect dials Discord and performs the handshake for appID.
func (c *IPCClient) Connect(appID string) error {
	c.appID = appID
	return c.open()
}

// Reconnect drops the current connection, if any, and dials again with
// the application ID of the last Connect.
func (c *IPCClient) Reconnect() error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return c.open()
}

func (c *IPCClient) open() error {
	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("dial discord socket: %w", err)
	}
	c.conn = conn

	handshake, _ := json.Marshal(map[string]any{
		"v":         1,
		"client_id": c.appID,
	})
	if err := c.writeFrame(opHandshake, handshake); err != nil {
		c.drop()
		return fmt.Errorf("handshake write: %w", err)
	}

	// Discord answers with a READY dispatch, or a close frame on a bad client ID.
	op, data, err := c.readFrame()
	if err != nil {
		c.drop()
		return fmt.Errorf("handshake read: %w", err)
	}
	if op == opClose {
		c.drop()
		return fmt.Errorf("handshake rejected: %w", responseError(data))
	}
	return nil
}

// SetActivity replaces the current activity.
func (c *IPCClient) SetActivity(a Activity) error {
	return c.setActivity(&a)
}

// ClearActivity removes the current activity.
func (c *IPCClient) ClearActivity() error {
	return c.setActivity(nil)
}

func (c *IPCClient) setActivity(a *Activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(map[string]any{
		"cmd": "SET_ACTIVITY",
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": a,
		},
		"nonce": nonce(),
	})
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	if err := c.writeFrame(opFrame, payload); err != nil {
		return err
	}

	op, data, err := c.readFrame()
	if err != nil {
		return err
	}
	if op == opClose {
		return fmt.Errorf("connection closed by discord: %w", responseError(data))
	}
	return responseError(data)
}

// Close sends a close frame and closes the socket.
func (c *IPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	_ = c.writeFrame(opClose, []byte("{}"))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *IPCClient) drop() {
	_ = c.conn.Close()
	c.conn = nil
}

// responseError extracts an error from a Discord response payload.
// Close frames carry {code, message} at the top level, command
// responses carry evt "ERROR" with the details in data.
func responseError(data []byte) error {
	var resp struct {
		Evt     string `json:"evt"`
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	switch {
	case resp.Evt == "ERROR":
		return fmt.Errorf("discord error %d: %s", resp.Data.Code, resp.Data.Message)
	case resp.Message != "":
		return fmt.Errorf("discord error %d: %s", resp.Code, resp.Message)
	}
	return nil
}

// socketDirs returns the directories that may hold discord-ipc sockets,
// including the Flatpak and Snap sandboxes.
func socketDirs() []string {
	var bases []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			bases = append(bases, dir)
		}
	}
	bases = append(bases, os.TempDir(), "/tmp")

	var dirs []string
	seen := make(map[string]bool)
	for _, base := range bases {
		for _, sub := range []string{"", "app/com.discordapp.Discord", "snap.discord"} {
			dir := filepath.Join(base, sub)
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

func dialSocket() (net.Conn, error) {
	lastErr := errors.New("no candidate paths")
	for _, dir := range socketDirs() {
		for i := 0; i <= 9; i++ {
			path := filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i))
			conn, err := net.DialTimeout("unix", path, 5*time.Second)
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no discord socket found: %w", lastErr)
}

// writeFrame sends a Discord IPC frame: [opcode LE u32][length LE u32][payload].
func (c *IPCClient) writeFrame(opcode uint32, payload []byte) error {
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], opcode)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	_, err := c.conn.Write(frame)
	return err
}

// readFrame reads a Discord IPC frame, allocating a buffer of the size
// declared in the header. Frames over maxFrameSize are rejected unread.
func (c *IPCClient) readFrame() (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return 0, nil, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds %d byte limit", length, maxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}

func nonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

package server

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Transport names used in logs and metric labels.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

const (
	maxLineLength = 8192
	writeTimeout  = 5 * time.Second
)

// Transport moves whole lines between a client and its session.
type Transport interface {
	// ReadLine blocks for the next line, without its terminator.
	ReadLine() (string, error)
	// WriteLine sends one line, adding the terminator.
	WriteLine(line string) error
	Close() error
	RemoteAddr() net.Addr
	Kind() string
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}

// tcpTransport speaks CRLF-terminated lines over a raw stream, dropping
// any telnet negotiation the client sends.
type tcpTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner
	enc     encoding.Encoding
}

func newTCPTransport(conn net.Conn, enc encoding.Encoding) *tcpTransport {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineLength)
	if enc == nil {
		enc = unicode.UTF8
	}
	return &tcpTransport{conn: conn, scanner: scanner, enc: enc}
}

func (t *tcpTransport) ReadLine() (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", net.ErrClosed
	}
	raw := stripTelnet(t.scanner.Bytes())
	line, err := t.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.TrimRight(strings.ToValidUTF8(string(raw), ""), "\r"), nil
	}
	return strings.TrimRight(string(line), "\r"), nil
}

func (t *tcpTransport) WriteLine(line string) error {
	line = strings.ReplaceAll(line, "\r\n", "\n")
	line = strings.ReplaceAll(line, "\n", "\r\n") + "\r\n"
	data, err := t.enc.NewEncoder().Bytes([]byte(line))
	if err != nil {
		data, _ = encoding.ReplaceUnsupported(t.enc.NewEncoder()).Bytes([]byte(line))
	}
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = t.conn.Write(data)
	return err
}

func (t *tcpTransport) Close() error         { return t.conn.Close() }
func (t *tcpTransport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }
func (t *tcpTransport) Kind() string         { return TransportTCP }

// Telnet protocol bytes.
const (
	iac  = 0xFF
	sb   = 0xFA
	se   = 0xF0
	will = 0xFB
	dont = 0xFE
)

// stripTelnet removes telnet IAC command sequences and control
// characters from a raw input line. A doubled IAC is an escaped 0xFF
// data byte and is kept.
func stripTelnet(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == iac && i+1 < len(b):
			next := b[i+1]
			switch {
			case next == iac:
				out = append(out, iac)
				i++
			case next == sb:
				// Skip the subnegotiation up to IAC SE.
				j := i + 2
				for j+1 < len(b) && !(b[j] == iac && b[j+1] == se) {
					j++
				}
				i = j + 1
			case next >= will && next <= dont:
				i += 2
			default:
				i++
			}
		case c == iac:
		case c < 32 && c != '\t' && c != '\r':
		case c == 0x7F:
		default:
			out = append(out, c)
		}
	}
	return out
}

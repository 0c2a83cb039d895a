/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package accept

import (
	"net"
	"time"
)

// packetListener adapts a net.PacketConn to the net.Listener contract
// so datagram services share the stream acceptor's fan-in loop: each
// Accept reads one datagram and hands back a net.Conn scoped to that
// packet's sender.
type packetListener struct {
	pc net.PacketConn
}

func newPacketListener(pc net.PacketConn) net.Listener {
	return &packetListener{pc: pc}
}

func (l *packetListener) Accept() (net.Conn, error) {
	buf := make([]byte, 64*1024)
	n, addr, err := l.pc.ReadFrom(buf)
	if err != nil {
		return nil, err
	}
	return &datagramConn{pc: l.pc, remote: addr, first: buf[:n]}, nil
}

func (l *packetListener) Close() error   { return l.pc.Close() }
func (l *packetListener) Addr() net.Addr { return l.pc.LocalAddr() }

// datagramConn presents one already-received datagram plus the ability
// to reply to its sender as a net.Conn, so a builtin or spawned server
// can treat it like a stream connection for the length of one exchange.
type datagramConn struct {
	pc     net.PacketConn
	remote net.Addr
	first  []byte
	read   bool
}

func (c *datagramConn) Read(b []byte) (int, error) {
	if !c.read {
		c.read = true
		n := copy(b, c.first)
		return n, nil
	}
	return 0, net.ErrClosed
}

func (c *datagramConn) Write(b []byte) (int, error) {
	return c.pc.WriteTo(b, c.remote)
}

func (c *datagramConn) Close() error                       { return nil }
func (c *datagramConn) LocalAddr() net.Addr                { return c.pc.LocalAddr() }
func (c *datagramConn) RemoteAddr() net.Addr                { return c.remote }
func (c *datagramConn) SetDeadline(t time.Time) error       { return nil }
func (c *datagramConn) SetReadDeadline(t time.Time) error   { return nil }
func (c *datagramConn) SetWriteDeadline(t time.Time) error  { return nil }

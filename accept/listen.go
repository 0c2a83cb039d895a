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
	"fmt"
	"net"

	"github.com/sabouaram/xinetd-go/service"
)

// Listen opens the listening socket svc describes: TCP or Unix stream
// for SocketStream, UDP or Unix datagram for SocketDatagram. Datagram
// services are wrapped so Accept returns one net.Conn per received
// datagram, addressed to its sender, matching the stream acceptor's
// fan-in contract.
func Listen(svc *service.Service) (net.Listener, error) {
	switch svc.Socket {
	case service.SocketStream:
		return listenStream(svc)
	case service.SocketDatagram:
		return listenDatagram(svc)
	default:
		return nil, ErrUnsupportedSocketKind.Error(nil)
	}
}

func listenStream(svc *service.Service) (net.Listener, error) {
	switch svc.Family {
	case service.FamilyUnix:
		ln, err := net.Listen("unix", svc.BindPath)
		if err != nil {
			return nil, ErrListenFailed.Error(err)
		}
		return ln, nil
	default:
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", svc.Port))
		if err != nil {
			return nil, ErrListenFailed.Error(err)
		}
		return ln, nil
	}
}

func listenDatagram(svc *service.Service) (net.Listener, error) {
	var pc net.PacketConn
	var err error

	switch svc.Family {
	case service.FamilyUnix:
		pc, err = net.ListenPacket("unixgram", svc.BindPath)
	default:
		pc, err = net.ListenPacket("udp", fmt.Sprintf(":%d", svc.Port))
	}
	if err != nil {
		return nil, ErrListenFailed.Error(err)
	}
	return newPacketListener(pc), nil
}

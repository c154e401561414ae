// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	applog "audiosim/internal/log"
)

// SpectrumSource is polled for the most recent spectrum frame.
type SpectrumSource interface {
	Bins() int
	MagnitudesInto(dst []float64) error
}

// PacketSender delivers one encoded packet.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically packs the latest spectrum magnitudes into a binary
// packet and hands it to a PacketSender. Packet layout, big-endian:
//
//	uint32   sequence number
//	int64    timestamp, ns since epoch
//	uint16   magnitude count N
//	N*float32 magnitudes
type Publisher struct {
	sender   PacketSender
	source   SpectrumSource
	interval time.Duration

	mu       sync.Mutex
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq    uint32
	mags   []float64
	f32    []float32
	packet bytes.Buffer
}

// NewPublisher validates its collaborators. A non-positive interval falls
// back to ~60 Hz.
func NewPublisher(interval time.Duration, sender PacketSender, source SpectrumSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp: spectrum source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	bins := source.Bins()
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, bins)
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		mags:     make([]float64, bins),
		f32:      make([]float32, bins),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				if err := p.publish(); err != nil {
					applog.Debugf("UDPPublisher: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop halts the goroutine and waits for it to exit. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Stopped after %d packets", p.seq)
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error { return p.Stop() }

// publish builds and sends one packet from the current spectrum.
func (p *Publisher) publish() error {
	if err := p.source.MagnitudesInto(p.mags); err != nil {
		return fmt.Errorf("fetch magnitudes: %w", err)
	}
	for i, v := range p.mags {
		p.f32[i] = float32(v)
	}

	p.seq++
	p.packet.Reset()
	if err := writePacket(&p.packet, p.seq, time.Now().UnixNano(), p.f32); err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	return nil
}

func writePacket(w io.Writer, seq uint32, timestamp int64, mags []float32) error {
	for _, v := range []any{seq, timestamp, uint16(len(mags)), mags} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// Packet is a decoded spectrum datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// DecodePacket parses a datagram produced by Publisher.
func DecodePacket(b []byte) (Packet, error) {
	const headerLen = 4 + 8 + 2
	if len(b) < headerLen {
		return Packet{}, fmt.Errorf("udp: packet of %d bytes too short", len(b))
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != headerLen+4*n {
		return Packet{}, fmt.Errorf("udp: packet declares %d magnitudes but carries %d bytes", n, len(b)-headerLen)
	}
	p.Magnitudes = make([]float32, n)
	if err := binary.Read(bytes.NewReader(b[headerLen:]), binary.BigEndian, p.Magnitudes); err != nil {
		return Packet{}, err
	}
	return p, nil
}

var _ io.Closer = (*Publisher)(nil)
var _ PacketSender = (*Sender)(nil)

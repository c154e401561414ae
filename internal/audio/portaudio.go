// SPDX-License-Identifier: MIT
package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gordonklaus/portaudio"

	applog "audiosim/internal/log"
	"audiosim/internal/pcm"
)

// DefaultDeviceID selects the host default device.
const DefaultDeviceID = -1

// Seams for tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// DeviceInfo describes a host audio device.
type DeviceInfo struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatency        time.Duration
	HighLatency       time.Duration
}

// Kind is Input, Output or Input/Output.
func (d DeviceInfo) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return "None"
}

// HostDevices returns every device PortAudio reports. PortAudio must be
// initialized.
func HostDevices() ([]DeviceInfo, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		devices[i] = DeviceInfo{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowLatency:        max(info.DefaultLowInputLatency, info.DefaultLowOutputLatency),
			HighLatency:       max(info.DefaultHighInputLatency, info.DefaultHighOutputLatency),
		}
	}
	return devices, nil
}

// InputDevice retrieves the capture device for deviceID. DefaultDeviceID
// selects the system default.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, paLibDefaultInputDeviceFunc, func(d *portaudio.DeviceInfo) error {
		if d.MaxInputChannels == 0 {
			return fmt.Errorf("device %d (%s) does not support input", deviceID, d.Name)
		}
		return nil
	})
}

// OutputDevice retrieves the playback device for deviceID. DefaultDeviceID
// selects the system default.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, paLibDefaultOutputDeviceFunc, func(d *portaudio.DeviceInfo) error {
		if d.MaxOutputChannels == 0 {
			return fmt.Errorf("device %d (%s) does not support output", deviceID, d.Name)
		}
		return nil
	})
}

func lookupDevice(deviceID int, def func() (*portaudio.DeviceInfo, error), check func(*portaudio.DeviceInfo) error) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID == DefaultDeviceID {
		return def()
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	d := devices[deviceID]
	if err := check(d); err != nil {
		return nil, err
	}
	return d, nil
}

var (
	deviceTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(lipgloss.Color("#25A065")).
				Padding(0, 1).
				Bold(true)

	deviceNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	deviceDetailStyle = lipgloss.NewStyle().
				PaddingLeft(4).
				Foreground(lipgloss.Color("#A8A8A8"))
)

// RenderDevices formats a device listing for a terminal.
func RenderDevices(devices []DeviceInfo) string {
	var sb strings.Builder
	sb.WriteString(deviceTitleStyle.Render("Available Audio Devices"))
	sb.WriteString("\n\n")
	if len(devices) == 0 {
		sb.WriteString("No audio devices found.\n")
		return sb.String()
	}
	for _, d := range devices {
		sb.WriteString(deviceNameStyle.Render(fmt.Sprintf("[%d] %s (%s)", d.ID, d.Name, d.Kind())))
		sb.WriteString("\n")
		sb.WriteString(deviceDetailStyle.Render(fmt.Sprintf(
			"Input channels: %d, Output channels: %d\nDefault sample rate: %.0f Hz\nLatency: Low=%.2fms, High=%.2fms",
			d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate,
			d.LowLatency.Seconds()*1000, d.HighLatency.Seconds()*1000)))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// ListDevices prints every host device.
func ListDevices() error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}
	fmt.Print(RenderDevices(devices))
	return nil
}

// paDevices returns all available PortAudio devices, never nil on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

// PortAudioConfig selects host devices and stream parameters.
type PortAudioConfig struct {
	InputDeviceID   int
	OutputDeviceID  int
	FramesPerBuffer int
	LowLatency      bool
}

// PortAudioDevice implements Device with 16 bit PortAudio streams.
type PortAudioDevice struct {
	cfg    PortAudioConfig
	input  *portaudio.DeviceInfo
	output *portaudio.DeviceInfo
}

// NewPortAudioDevice resolves the configured devices. Either may be missing
// on the host; opening a stream in that direction then fails.
func NewPortAudioDevice(cfg PortAudioConfig) (*PortAudioDevice, error) {
	in, inErr := InputDevice(cfg.InputDeviceID)
	out, outErr := OutputDevice(cfg.OutputDeviceID)
	if inErr != nil && outErr != nil {
		return nil, errors.Join(inErr, outErr)
	}
	if inErr != nil {
		applog.Warnf("PortAudio: no input device: %v", inErr)
	}
	if outErr != nil {
		applog.Warnf("PortAudio: no output device: %v", outErr)
	}
	return &PortAudioDevice{cfg: cfg, input: in, output: out}, nil
}

func (d *PortAudioDevice) latency(low, high time.Duration) time.Duration {
	if d.cfg.LowLatency {
		return low
	}
	return high
}

func (d *PortAudioDevice) outputParams(f pcm.Format) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   d.output,
			Channels: f.Channels,
			Latency:  d.latency(d.output.DefaultLowOutputLatency, d.output.DefaultHighOutputLatency),
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: d.cfg.FramesPerBuffer,
	}
}

// Supports reports whether the output device accepts f.
func (d *PortAudioDevice) Supports(f pcm.Format) bool {
	if d.output == nil || !f.IsPCMS16LE() || f.Channels > d.output.MaxOutputChannels {
		return false
	}
	return portaudio.IsFormatSupported(d.outputParams(f), make([]int16, 0)) == nil
}

func (d *PortAudioDevice) OpenInput(f pcm.Format, notify time.Duration) (InputStream, error) {
	if d.input == nil {
		return nil, errors.New("no input device")
	}
	if !f.IsPCMS16LE() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   d.input,
			Channels: f.Channels,
			Latency:  d.latency(d.input.DefaultLowInputLatency, d.input.DefaultHighInputLatency),
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: d.cfg.FramesPerBuffer,
	}

	s := &paInputStream{
		paStream: newPAStream(f),
		ready:    make(chan struct{}, 1),
	}
	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return nil, err
	}
	if err := s.start(stream, notify); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *PortAudioDevice) OpenOutput(f pcm.Format, src io.Reader, notify time.Duration) (OutputStream, error) {
	if d.output == nil {
		return nil, errors.New("no output device")
	}
	if !f.IsPCMS16LE() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	s := &paOutputStream{
		paStream: newPAStream(f),
		src:      bufio.NewReaderSize(src, 64*1024),
	}
	stream, err := portaudio.OpenStream(d.outputParams(f), s.process)
	if err != nil {
		return nil, err
	}
	if err := s.start(stream, notify); err != nil {
		return nil, err
	}
	return s, nil
}

// paStream is the timing shared by both directions. The callback counts
// frames; a ticker goroutine turns the count into notify ticks.
type paStream struct {
	format  pcm.Format
	stream  *portaudio.Stream
	started time.Time
	frames  atomic.Int64

	notify   chan struct{}
	stop     chan struct{}
	finished chan struct{}
	drained  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

func newPAStream(f pcm.Format) *paStream {
	return &paStream{
		format:   f,
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *paStream) start(stream *portaudio.Stream, notify time.Duration) error {
	s.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	s.started = time.Now()
	go s.tick(notify)
	return nil
}

func (s *paStream) tick(interval time.Duration) {
	defer close(s.finished)
	defer close(s.notify)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			if s.drained.Load() {
				return
			}
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
	}
}

func (s *paStream) Notify() <-chan struct{} { return s.notify }

func (s *paStream) ProcessedMicroseconds() int64 {
	return s.frames.Load() * 1_000_000 / int64(s.format.SampleRate)
}

func (s *paStream) ElapsedMicroseconds() int64 {
	return time.Since(s.started).Microseconds()
}

func (s *paStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.finished
		if err := s.stream.Stop(); err != nil {
			s.stopErr = err
		}
		if err := s.stream.Close(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
	})
	return s.stopErr
}

type paInputStream struct {
	*paStream

	mu      sync.Mutex
	pending []byte
	ready   chan struct{}
}

func (s *paInputStream) process(in []int16) {
	s.mu.Lock()
	for _, v := range in {
		s.pending = binary.LittleEndian.AppendUint16(s.pending, uint16(v))
	}
	s.mu.Unlock()
	s.frames.Add(int64(len(in) / s.format.Channels))

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *paInputStream) DataReady() <-chan struct{} { return s.ready }

func (s *paInputStream) BytesReady() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *paInputStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[n:])]
	return n, nil
}

type paOutputStream struct {
	*paStream

	src     *bufio.Reader
	scratch []byte
}

func (s *paOutputStream) process(out []int16) {
	need := 2 * len(out)
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	buf := s.scratch[:need]

	n := 0
	if !s.drained.Load() {
		var err error
		n, err = io.ReadFull(s.src, buf)
		if err != nil {
			s.drained.Store(true)
		}
	}
	n &^= 1
	for i := range out {
		if 2*i < n {
			out[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
		} else {
			out[i] = 0
		}
	}
	s.frames.Add(int64(n / 2 / s.format.Channels))
}

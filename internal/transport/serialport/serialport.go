// Package serialport drives a real serial device through go.bug.st/serial.
package serialport

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"

	"afkbot/internal/transport"
	logx "afkbot/pkg/logx"
)

type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

type openFunc func(name string, mode *serial.Mode) (serial.Port, error)

// Driver is a transport.Transport over one serial port.
type Driver struct {
	cfg  Config
	log  logx.Logger
	open openFunc

	mu   sync.Mutex
	port serial.Port
}

var _ transport.Transport = (*Driver)(nil)

func New(cfg Config, log logx.Logger) *Driver {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	return &Driver{
		cfg:  cfg,
		log:  log.With(logx.String("transport", "serial"), logx.String("port", cfg.Port)),
		open: serial.Open,
	}
}

func (d *Driver) Describe() string {
	return d.cfg.Port + " @ " + strconv.Itoa(d.cfg.Baud)
}

func (d *Driver) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
	p, err := d.open(d.cfg.Port, &serial.Mode{BaudRate: d.cfg.Baud})
	if err != nil {
		return transport.Wrap("open", d.cfg.Port, err)
	}
	if d.cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
			_ = p.Close()
			return transport.Wrap("open", d.cfg.Port, err)
		}
	}
	d.port = p
	d.log.Debug("serial port opened", logx.Int("baud", d.cfg.Baud))
	return nil
}

func (d *Driver) Write(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return transport.Wrap("write", d.cfg.Port, transport.ErrClosed)
	}
	for len(b) > 0 {
		n, err := d.port.Write(b)
		if err != nil {
			return transport.Wrap("write", d.cfg.Port, err)
		}
		if n <= 0 {
			return transport.Wrap("write", d.cfg.Port, io.ErrShortWrite)
		}
		b = b[n:]
	}
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	p := d.port
	d.port = nil
	d.mu.Unlock()
	if p == nil {
		return nil
	}
	if err := p.Close(); err != nil {
		return transport.Wrap("close", d.cfg.Port, err)
	}
	return nil
}

// List returns the serial ports present on this machine, sorted.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

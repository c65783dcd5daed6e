package libusb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
	"github.com/google/gousb/usbid"

	"github.com/ardnew/microbridge/adb/hal"
	"github.com/ardnew/microbridge/pkg"
)

// ADB interface identification (USB class/subclass/protocol).
const (
	adbClass    gousb.Class    = 0xFF
	adbSubClass gousb.Class    = 0x42
	adbProtocol gousb.Protocol = 0x01
)

// defaultPollTimeout bounds a non-blocking bulk read. A read that sees no
// data within this window reports pkg.ErrNoData.
const defaultPollTimeout = 20 * time.Millisecond

// bridgeInterface locates the ADB function within a device's descriptors.
type bridgeInterface struct {
	config    int
	number    int
	alternate int
	inNum     int
	outNum    int
	maxPacket int
}

// findBridgeInterface scans a device's configuration descriptors for an
// interface of class 0xFF, subclass 0x42, protocol 0x01 with exactly two
// bulk endpoints, one per direction.
func findBridgeInterface(desc *gousb.DeviceDesc) (bridgeInterface, bool) {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class != adbClass || alt.SubClass != adbSubClass || alt.Protocol != adbProtocol {
					continue
				}
				if len(alt.Endpoints) != 2 {
					continue
				}

				found := bridgeInterface{
					config:    cfg.Number,
					number:    intf.Number,
					alternate: alt.Alternate,
					inNum:     -1,
					outNum:    -1,
				}
				for _, ep := range alt.Endpoints {
					if ep.TransferType != gousb.TransferTypeBulk {
						continue
					}
					switch ep.Direction {
					case gousb.EndpointDirectionIn:
						found.inNum = ep.Number
						found.maxPacket = ep.MaxPacketSize
					case gousb.EndpointDirectionOut:
						found.outNum = ep.Number
					}
				}
				if found.inNum >= 0 && found.outNum >= 0 {
					return found, true
				}
			}
		}
	}
	return bridgeInterface{}, false
}

// Transport implements [hal.Transport] over a libusb-backed USB device via
// github.com/google/gousb. The device is located by its ADB interface
// signature, its interface claimed, and the two bulk endpoints opened.
//
// A transfer failing with a no-device condition marks the transport
// detached; the engine observes this through Attached and force-closes
// its connections.
type Transport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	attached    bool
	pollTimeout time.Duration
}

// Option configures a Transport during Open.
type Option func(*openConfig)

type openConfig struct {
	serial      string
	debug       int
	pollTimeout time.Duration
}

// WithSerial selects the device with the given serial number when more
// than one ADB-capable device is present.
func WithSerial(serial string) Option {
	return func(c *openConfig) { c.serial = serial }
}

// WithDebug sets the libusb debug level (0..3).
func WithDebug(level int) Option {
	return func(c *openConfig) { c.debug = level }
}

// WithPollTimeout sets the window a non-blocking bulk read waits for data
// before reporting pkg.ErrNoData.
func WithPollTimeout(d time.Duration) Option {
	return func(c *openConfig) { c.pollTimeout = d }
}

// Open locates the first ADB-capable device on the bus, claims its bridge
// interface, and returns a transport bound to its bulk endpoints.
// Returns [pkg.ErrNoDevice] if no matching device is present.
func Open(opts ...Option) (*Transport, error) {
	oc := openConfig{pollTimeout: defaultPollTimeout}
	for _, opt := range opts {
		opt(&oc)
	}

	ctx := gousb.NewContext()
	ctx.Debug(oc.debug)

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := findBridgeInterface(desc)
		return ok
	})
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("device scan: %w", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, pkg.ErrNoDevice
	}

	dev, err := selectDevice(devs, oc.serial)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	t, err := claim(ctx, dev)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	t.pollTimeout = oc.pollTimeout
	return t, nil
}

// selectDevice picks the device matching the requested serial (or the
// first device if none requested) and closes the rest.
func selectDevice(devs []*gousb.Device, serial string) (*gousb.Device, error) {
	var chosen *gousb.Device
	for _, dev := range devs {
		if chosen != nil {
			dev.Close()
			continue
		}
		if serial == "" {
			chosen = dev
			continue
		}
		got, err := dev.SerialNumber()
		if err == nil && got == serial {
			chosen = dev
			continue
		}
		dev.Close()
	}
	if chosen == nil {
		return nil, pkg.ErrNoDevice
	}
	return chosen, nil
}

// claim configures the device and claims its bridge interface.
func claim(ctx *gousb.Context, dev *gousb.Device) (*Transport, error) {
	target, ok := findBridgeInterface(dev.Desc)
	if !ok {
		return nil, pkg.ErrNoDevice
	}

	// Detach any kernel driver holding the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		pkg.LogWarn(pkg.ComponentTransport, "auto-detach unavailable", "error", err)
	}

	cfg, err := dev.Config(target.config)
	if err != nil {
		return nil, fmt.Errorf("select config %d: %w", target.config, err)
	}
	intf, err := cfg.Interface(target.number, target.alternate)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("claim interface %d: %w", target.number, err)
	}
	in, err := intf.InEndpoint(target.inNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("open IN endpoint %d: %w", target.inNum, err)
	}
	out, err := intf.OutEndpoint(target.outNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("open OUT endpoint %d: %w", target.outNum, err)
	}

	pkg.LogInfo(pkg.ComponentTransport, "device claimed",
		"device", usbid.Describe(dev.Desc),
		"interface", target.number,
		"maxPacketSize", in.Desc.MaxPacketSize)

	return &Transport{
		ctx:      ctx,
		dev:      dev,
		cfg:      cfg,
		intf:     intf,
		in:       in,
		out:      out,
		attached: true,
	}, nil
}

// Poll implements [hal.Transport]. libusb event handling runs on its own
// threads; no per-cycle work is needed here.
func (t *Transport) Poll() error { return nil }

// Attached reports whether the device is still present.
func (t *Transport) Attached() bool { return t.attached }

// MaxPacketSize returns the IN endpoint's maximum packet size.
func (t *Transport) MaxPacketSize() int { return t.in.Desc.MaxPacketSize }

// BulkWrite sends p to the OUT endpoint.
func (t *Transport) BulkWrite(p []byte) (int, error) {
	n, err := t.out.Write(p)
	if err != nil {
		return n, t.mapError(err)
	}
	return n, nil
}

// BulkRead reads one transfer from the IN endpoint. With block false the
// read is bounded by the poll timeout and reports [pkg.ErrNoData] when
// nothing arrives.
func (t *Transport) BulkRead(p []byte, block bool) (int, error) {
	if block {
		n, err := t.in.Read(p)
		if err != nil {
			return n, t.mapError(err)
		}
		return n, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.pollTimeout)
	defer cancel()

	n, err := t.in.ReadContext(ctx, p)
	if err != nil {
		return n, t.mapError(err)
	}
	return n, nil
}

// Close releases the interface and all libusb resources.
func (t *Transport) Close() error {
	t.attached = false
	if t.intf != nil {
		t.intf.Close()
	}
	if t.cfg != nil {
		t.cfg.Close()
	}
	if t.dev != nil {
		t.dev.Close()
	}
	if t.ctx != nil {
		return t.ctx.Close()
	}
	return nil
}

// mapError translates gousb failures into the engine's sentinel errors,
// marking the transport detached when the device is gone.
func (t *Transport) mapError(err error) error {
	switch {
	case errors.Is(err, gousb.ErrorTimeout),
		errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, gousb.TransferCancelled),
		errors.Is(err, context.DeadlineExceeded):
		return pkg.ErrNoData

	case errors.Is(err, gousb.ErrorNoDevice),
		errors.Is(err, gousb.TransferNoDevice):
		t.attached = false
		return pkg.ErrNoDevice

	default:
		return err
	}
}

// DeviceInfo describes one ADB-capable device found on the bus.
type DeviceInfo struct {
	Bus         int
	Address     int
	VendorID    gousb.ID
	ProductID   gousb.ID
	Serial      string
	Description string
}

// List enumerates ADB-capable devices without claiming them.
func List() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := findBridgeInterface(desc)
		return ok
	})
	for _, dev := range devs {
		defer dev.Close()
	}
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("device scan: %w", err)
	}

	infos := make([]DeviceInfo, 0, len(devs))
	for _, dev := range devs {
		info := DeviceInfo{
			Bus:         dev.Desc.Bus,
			Address:     dev.Desc.Address,
			VendorID:    dev.Desc.Vendor,
			ProductID:   dev.Desc.Product,
			Description: usbid.Describe(dev.Desc),
		}
		if serial, err := dev.SerialNumber(); err == nil {
			info.Serial = serial
		}
		infos = append(infos, info)
	}
	return infos, nil
}

var _ hal.Transport = (*Transport)(nil)

package ble

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/trigger"
)

// Peripheral advertises the coordinator under the trigger name and exposes a
// read/notify characteristic for external controllers.
//
// It implements trigger.Sender.
type Peripheral struct {
	adapter  *bluetooth.Adapter
	name     string
	identity Identity
	logger   Logger

	mu      sync.Mutex
	char    bluetooth.Characteristic
	adv     *bluetooth.Advertisement
	started bool
}

// NewPeripheral creates a trigger peripheral. The adapter must already be
// enabled.
func NewPeripheral(adapter *bluetooth.Adapter, name string, identity Identity) *Peripheral {
	return &Peripheral{
		adapter:  adapter,
		name:     name,
		identity: identity,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the peripheral.
func (p *Peripheral) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

// Start registers the trigger service and begins advertising.
func (p *Peripheral) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	if p.adapter == nil {
		return ErrUnavailable
	}

	err := p.adapter.AddService(&bluetooth.Service{
		UUID: p.identity.Service,
		Characteristics: []bluetooth.CharacteristicConfig{{
			Handle: &p.char,
			UUID:   p.identity.Characteristic,
			Value:  []byte{0x00},
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		}},
	})
	if err != nil {
		return fmt.Errorf("adding trigger service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.name,
		ServiceUUIDs: []bluetooth.UUID{p.identity.Service},
	}); err != nil {
		return fmt.Errorf("configuring advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("starting advertisement: %w", err)
	}

	p.adv = adv
	p.started = true
	p.logger.Info("advertising trigger", "name", p.name)
	return nil
}

// Send notifies subscribers with p. A rejected notification is reported as
// trigger.ErrBufferFull so the signal retries it.
func (p *Peripheral) Send(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return trigger.ErrNotReady
	}
	if _, err := p.char.Write(b); err != nil {
		return fmt.Errorf("%w: %v", trigger.ErrBufferFull, err)
	}
	return nil
}

// Stop ends advertising.
func (p *Peripheral) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("stopping advertisement: %w", err)
	}
	return nil
}

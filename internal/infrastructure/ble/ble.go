package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// Logger defines the logging interface used by the BLE components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Identity is the pair of UUIDs every node and the coordinator share.
type Identity struct {
	Service        bluetooth.UUID
	Characteristic bluetooth.UUID
}

// ParseIdentity parses the service and characteristic UUID strings.
func ParseIdentity(service, characteristic string) (Identity, error) {
	svc, err := bluetooth.ParseUUID(service)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: service %q: %v", ErrInvalidUUID, service, err)
	}
	chr, err := bluetooth.ParseUUID(characteristic)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: characteristic %q: %v", ErrInvalidUUID, characteristic, err)
	}
	return Identity{Service: svc, Characteristic: chr}, nil
}

// findCharacteristic discovers the identity's characteristic on a connected
// device.
func findCharacteristic(dev bluetooth.Device, id Identity) (bluetooth.DeviceCharacteristic, error) {
	services, err := dev.DiscoverServices([]bluetooth.UUID{id.Service})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}
	if len(services) == 0 {
		return bluetooth.DeviceCharacteristic{}, ErrServiceNotFound
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{id.Characteristic})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %v", ErrCharacteristicNotFound, err)
	}
	if len(chars) == 0 {
		return bluetooth.DeviceCharacteristic{}, ErrCharacteristicNotFound
	}
	return chars[0], nil
}

// gattChannel adapts a discovered characteristic to device.Channel.
type gattChannel struct {
	char bluetooth.DeviceCharacteristic
}

func (g gattChannel) Write(p []byte) (int, error) {
	return g.char.Write(p)
}

func (g gattChannel) WriteWithoutResponse(p []byte) (int, error) {
	return g.char.WriteWithoutResponse(p)
}

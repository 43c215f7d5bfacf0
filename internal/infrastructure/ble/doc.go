// Package ble binds the coordinator to a Bluetooth Low Energy adapter using
// tinygo.org/x/bluetooth.
//
// Central scans for light nodes, connects to them and negotiates the command
// characteristic, posting each outcome to the device event loop. Peripheral
// advertises the trigger service and sends trigger notifications. Listener
// is the other end of the trigger, used by cmd/synclisten on the external
// controller.
//
// When the adapter cannot be enabled every operation returns ErrUnavailable
// and the rest of the coordinator keeps running without nodes.
package ble

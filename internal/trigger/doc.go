// Package trigger sends the one-byte "about to start" notification to an
// external controller.
//
// The coordinator advertises itself under a short name (SYNC by default) and
// exposes a notify characteristic. Controllers that subscribe receive 0x01
// each time Notify is called, usually just before a route runs. Delivery is
// best effort: a full transmit buffer is retried a bounded number of times,
// then the trigger is dropped.
package trigger

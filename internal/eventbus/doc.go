// Package eventbus provides an in-process, typed publish/subscribe bus used to
// decouple the control loops from their observers. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event.
package eventbus

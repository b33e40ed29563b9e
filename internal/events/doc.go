// Package events publishes progress notifications.
//
// After a successful progress update the HTTP layer publishes one structured
// event to NATS on projects.<id>.progress.<type>; SSE streams subscribe to
// that subject tree. The progress state machine itself never touches this
// package.
package events

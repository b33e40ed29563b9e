// Package httpapi exposes roadmapd over HTTP: project CRUD, progress
// commands, advisory completion detection, and an SSE stream of progress
// events. Envelope shapes and status-code mapping live here and nowhere
// else.
package httpapi

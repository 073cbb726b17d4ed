// Package sse delivers job progress events to HTTP clients over Server-Sent
// Events. A Hub fans published events out to clients subscribed by topic;
// topics are glob patterns, so a client may follow one job or all of them.
package sse

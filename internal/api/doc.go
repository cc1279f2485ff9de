// Package api holds the wire types shared by the ppmsteg server and client:
// endpoint paths, JSON bodies, WebSocket frames, and the mapping from ppm and
// steg errors onto HTTP status codes.
package api

// Package server exposes the ppmsteg codec over HTTP and WebSocket.
//
// # Endpoints
//
//	POST /api/encode   multipart (message, image) or raw PPM body with ?message=
//	                   → encoded image, Content-Type image/x-portable-pixmap
//	POST /api/decode   raw PPM body or multipart image → {"message": "..."}
//	POST /api/inspect  raw PPM body or multipart image → header, data offset, capacity
//	GET  /healthz      → {"status": "ok", "version": "..."}
//	GET  /ws           JSON requests {"id","op","message","image"} answered in order
//
// Images inside WebSocket frames are base64 encoded.
//
// # Errors
//
// Every failure is a JSON body {"error": "...", "type": "..."}:
//   - 422 for header and codec errors (bad_header, capacity, truncated_data, ...)
//   - 400 for malformed requests and unreadable bodies
//   - 413 when the body exceeds MaxUploadBytes
//   - 405 for the wrong method
//
// # TLS
//
// When CertPath and KeyPath are set the server loads them. With SelfSigned it
// generates an ECDSA certificate in memory covering localhost and the host
// name. Otherwise it serves plain HTTP.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Port:      8765,
//	    Advertise: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// On shutdown the mDNS advertisement is withdrawn, in-flight HTTP requests
// are given ShutdownTimeout to finish, and open WebSocket connections receive
// a close frame.
package server

// Package discovery advertises and finds ppmsteg servers using mDNS.
//
// A server started with advertising enabled registers the "_ppmsteg._tcp"
// service in the "local." domain. Its TXT records carry the server version,
// the API path prefix and the URL scheme:
//
//	version=v0.3.0
//	path=/api
//	scheme=https
//
// # Usage Example
//
//	srv, err := discovery.Advertise("", 8765, discovery.DefaultTXT("http"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Shutdown()
//
//	services, err := discovery.ScanForServers(ctx, 5*time.Second)
//	for _, svc := range services {
//	    fmt.Println(svc.Instance, svc.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery

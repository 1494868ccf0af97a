package ros

import (
	"net"
	"os"
)

// hostEnv lists the variables that name the advertised host, in order of
// precedence. Empty values are ignored.
var hostEnv = []string{"ROS_HOSTNAME", "ROS_IP"}

// determineHost picks the host name advertised to other nodes and reports
// whether it is only reachable from this machine.
func determineHost() (string, bool) {
	for _, key := range hostEnv {
		if host := os.Getenv(key); host != "" {
			return host, isLoopback(host)
		}
	}
	if name, err := os.Hostname(); err == nil && name != "" && !isLoopback(name) {
		return name, false
	}
	if ip := externalIP(); ip != nil {
		return ip.String(), false
	}
	return "127.0.0.1", true
}

// externalIP returns the first non-loopback interface address, IPv4 first.
func externalIP() net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var v6 net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ipnet.IP.To4() != nil {
			return ipnet.IP
		}
		if v6 == nil {
			v6 = ipnet.IP
		}
	}
	return v6
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

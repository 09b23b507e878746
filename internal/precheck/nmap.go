// Package precheck drops hosts whose service port is not open before any
// credential is tried against them.
package precheck

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/sirupsen/logrus"
)

// HostFilter returns the subset of addresses worth probing, in input order.
type HostFilter interface {
	Filter(ctx context.Context, addresses []string) ([]string, error)
}

// NmapFilter runs one TCP connect scan over every host and port in the list.
type NmapFilter struct {
	// Port is assumed for addresses without one.
	Port    uint16
	Timeout time.Duration
	Log     *logrus.Entry
}

func (f *NmapFilter) Filter(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	targets, ports := scanPlan(addresses, f.Port)

	log := f.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithFields(logrus.Fields{
		"targets": len(targets),
		"ports":   ports,
	}).Info("Starting nmap precheck")

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	scanner, err := nmap.NewScanner(ctx,
		nmap.WithTargets(targets...),
		nmap.WithPorts(ports),
		nmap.WithConnectScan(),
		nmap.WithOpenOnly(),
		nmap.WithSkipHostDiscovery(),
		nmap.WithDisabledDNSResolution(),
	)
	if err != nil {
		return nil, fmt.Errorf("create nmap scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("run nmap: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.WithField("warnings", *warnings).Warn("Nmap precheck produced warnings")
	}

	kept := keepOpen(addresses, openEndpoints(result.Hosts), f.Port)
	log.WithFields(logrus.Fields{
		"hosts":   len(addresses),
		"open":    len(kept),
		"dropped": len(addresses) - len(kept),
	}).Info("Nmap precheck complete")
	return kept, nil
}

// splitTarget separates an address into host and port, falling back to
// defaultPort when the address carries none.
func splitTarget(addr string, defaultPort uint16) (string, uint16) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]"), defaultPort
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return host, defaultPort
	}
	return host, uint16(port)
}

// scanPlan returns the distinct hosts and a comma separated port list.
func scanPlan(addresses []string, defaultPort uint16) ([]string, string) {
	var hosts []string
	var ports []int
	seenHost := map[string]struct{}{}
	seenPort := map[uint16]struct{}{}
	for _, addr := range addresses {
		host, port := splitTarget(addr, defaultPort)
		if _, ok := seenHost[host]; !ok {
			seenHost[host] = struct{}{}
			hosts = append(hosts, host)
		}
		if _, ok := seenPort[port]; !ok {
			seenPort[port] = struct{}{}
			ports = append(ports, int(port))
		}
	}
	slices.Sort(ports)
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return hosts, strings.Join(parts, ",")
}

func endpointKey(host string, port uint16) string {
	return net.JoinHostPort(strings.ToLower(host), strconv.Itoa(int(port)))
}

// openEndpoints indexes every open port under each of the host's addresses
// and hostnames.
func openEndpoints(hosts []nmap.Host) map[string]struct{} {
	open := make(map[string]struct{})
	for _, h := range hosts {
		names := hostNames(h)
		for _, p := range h.Ports {
			if !strings.HasPrefix(strings.ToLower(p.State.State), "open") {
				continue
			}
			for _, n := range names {
				open[endpointKey(n, uint16(p.ID))] = struct{}{}
			}
		}
	}
	return open
}

func hostNames(h nmap.Host) []string {
	var names []string
	for _, a := range h.Addresses {
		if a.AddrType == "ipv4" || a.AddrType == "ipv6" {
			names = append(names, a.Addr)
		}
	}
	for _, hn := range h.Hostnames {
		if hn.Name != "" {
			names = append(names, hn.Name)
		}
	}
	return names
}

func keepOpen(addresses []string, open map[string]struct{}, defaultPort uint16) []string {
	kept := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		host, port := splitTarget(addr, defaultPort)
		if _, ok := open[endpointKey(host, port)]; ok {
			kept = append(kept, addr)
		}
	}
	return kept
}

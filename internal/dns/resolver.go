// Package dns wraps MX resolution for outbound delivery.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// ErrNoMailServer is returned when a domain publishes no resolvable
// MX records. Delivery to such a domain is a hard failure; there is no
// fallback to A/AAAA records.
var ErrNoMailServer = errors.New("no mail server found for domain")

// Resolver is the subset of net.Resolver used by the bridge.
// It is implemented by net.DefaultResolver and by test fakes.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// DefaultResolver returns the system DNS resolver.
func DefaultResolver() Resolver {
	return net.DefaultResolver
}

// ResolveExchanges looks up the MX records for domain and returns the
// exchange hosts ordered by ascending preference (highest priority
// first), with trailing dots stripped. It returns ErrNoMailServer when
// the domain has no MX records.
func ResolveExchanges(ctx context.Context, resolver Resolver, domain string) ([]string, error) {
	records, err := resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoMailServer, domain)
		}
		return nil, fmt.Errorf("MX lookup for %s: %w", domain, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMailServer, domain)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})

	hosts := make([]string, 0, len(records))
	for _, record := range records {
		host := strings.TrimSuffix(record.Host, ".")
		// "." as the sole exchange is a null MX: the domain does not
		// accept mail (RFC 7505).
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMailServer, domain)
	}

	return hosts, nil
}

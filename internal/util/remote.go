// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// MaxRemoteURLLength bounds the URLs of remote pictures and bio pages.
const MaxRemoteURLLength = 2048

// ErrNonPublicAddress is returned when a remote host resolves to a private,
// loopback or otherwise reserved address.
var ErrNonPublicAddress = errors.New("address is not public")

// reservedPrefixes are the ranges a remote fetch must never reach.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsPublicAddr reports whether addr may be fetched from. IPv4-mapped IPv6
// addresses are checked as IPv4.
func IsPublicAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// ValidateRemoteURL checks that rawURL is an http(s) URL whose host only
// resolves to public addresses.
func ValidateRemoteURL(ctx context.Context, rawURL string) error {
	if len(rawURL) > MaxRemoteURLLength {
		return fmt.Errorf("URL longer than %d characters", MaxRemoteURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme %q is not http or https", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("URL has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%s: %w", host, ErrNonPublicAddress)
	}

	_, err = resolvePublic(ctx, host)
	return err
}

// resolvePublic resolves host and fails unless every address is public.
func resolvePublic(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if !IsPublicAddr(addr) {
			return nil, fmt.Errorf("%s: %w", addr, ErrNonPublicAddress)
		}
		return []netip.Addr{addr}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s has no addresses", host)
	}
	for _, addr := range addrs {
		if !IsPublicAddr(addr) {
			return nil, fmt.Errorf("%s resolves to %s: %w", host, addr, ErrNonPublicAddress)
		}
	}
	return addrs, nil
}

// publicDialer dials only public addresses. It connects to the addresses it
// checked so a second DNS answer cannot redirect the connection.
func publicDialer(d *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		addrs, err := resolvePublic(ctx, host)
		if err != nil {
			return nil, err
		}

		var dialErr error
		for _, addr := range addrs {
			conn, err := d.DialContext(ctx, network, net.JoinHostPort(addr.String(), port))
			if err == nil {
				return conn, nil
			}
			dialErr = err
		}
		return nil, fmt.Errorf("connecting to %s: %w", host, dialErr)
	}
}

// NewRemoteHTTPClient returns an HTTP client that can only reach public
// addresses, redirects included.
func NewRemoteHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           publicDialer(&net.Dialer{Timeout: 10 * time.Second}),
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Reverse-proxy headers consulted after X-Forwarded-For, in order.
var clientIPHeaders = []string{
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
}

// clientIP returns the first public address found in the proxy headers or
// the connection itself, or "" when only private addresses are present.
func clientIP(c *fiber.Ctx) string {
	if ip := selectPublicIP(strings.Split(c.Get(fiber.HeaderXForwardedFor), ",")); ip != "" {
		return ip
	}

	for _, header := range clientIPHeaders {
		if value := c.Get(header); value != "" {
			if ip := selectPublicIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPublicIP(parseForwardedFor(forwarded)); ip != "" {
			return ip
		}
	}

	return selectPublicIP([]string{c.Context().RemoteAddr().String(), c.IP()})
}

// selectPublicIP prefers the first public IPv4 and falls back to the first
// public IPv6.
func selectPublicIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		addr, ok := normalizeIP(raw)
		if !ok || isPrivateAddr(addr) {
			continue
		}
		if addr.Is4() {
			return addr.String()
		}
		if ipv6Fallback == "" {
			ipv6Fallback = addr.String()
		}
	}

	return ipv6Fallback
}

func normalizeIP(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}

	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return addrPort.Addr().Unmap(), true
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return addr.Unmap(), true
	}

	if host, _, err := net.SplitHostPort(clean); err == nil {
		return normalizeIP(host)
	}

	return netip.Addr{}, false
}

func isPrivateAddr(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

func parseForwardedFor(header string) []string {
	var candidates []string
	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if len(part) > 4 && strings.EqualFold(part[:4], "for=") {
				candidates = append(candidates, part[4:])
			}
		}
	}
	return candidates
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}

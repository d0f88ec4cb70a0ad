package tracking

import (
	"net/url"
	"strings"

	"musicpage/internal/pkg/geoip"
)

// Edge headers carrying the visitor's country, in priority order.
var countryHeaders = []string{
	"X-Vercel-IP-Country",
	"CF-IPCountry",
	"X-Country-Code",
}

// Edge headers carrying the visitor's city, in priority order.
var cityHeaders = []string{
	"X-Vercel-IP-City",
	"CF-IPCity",
}

// GeoFromHeaders reads country and city from edge headers. Unknown values are
// returned as empty strings.
func GeoFromHeaders(header func(string) string) (country, city string) {
	for _, h := range countryHeaders {
		if v := normalizeCountry(header(h)); v != "" {
			country = v
			break
		}
	}
	for _, h := range cityHeaders {
		if v := decodeCity(header(h)); v != "" {
			city = v
			break
		}
	}
	return country, city
}

// resolveGeo fills missing geo fields from the GeoIP database.
func resolveGeo(country, city, ip string) (string, string) {
	if country = normalizeCountry(country); country != "" {
		return country, city
	}
	loc := geoip.Lookup(ip)
	country = normalizeCountry(loc.Country)
	if city == "" {
		city = loc.City
	}
	return country, city
}

func normalizeCountry(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	switch v {
	case "", "XX", "T1", "ZZ":
		return ""
	}
	if len(v) != 2 {
		return ""
	}
	return v
}

func decodeCity(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(v); err == nil {
		v = decoded
	}
	return strings.TrimSpace(v)
}

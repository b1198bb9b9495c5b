package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

var geoClient = &http.Client{Timeout: 5 * time.Second}

// GeoLocation is the subset of the IP lookup reply we use
type GeoLocation struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
}

// LookupCountry resolves the country of ip through an ip-api style endpoint
func LookupCountry(ctx context.Context, baseURL, ip string) (*GeoLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/"+ip, nil)
	if err != nil {
		return nil, err
	}
	resp, err := geoClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup returned %d", resp.StatusCode)
	}
	var loc GeoLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("failed to decode geo lookup: %w", err)
	}
	if loc.Status != "" && loc.Status != "success" {
		return nil, fmt.Errorf("geo lookup status %q", loc.Status)
	}
	return &loc, nil
}

// ClientIP prefers the proxy header over the socket address
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Countries is the list offered on the user-details step
var Countries = []string{
	"Argentina", "Australia", "Austria", "Bangladesh", "Belgium", "Brazil", "Canada", "Chile", "China",
	"Colombia", "Czech Republic", "Denmark", "Egypt", "Finland", "France", "Germany", "Greece", "Hong Kong",
	"Hungary", "India", "Indonesia", "Ireland", "Israel", "Italy", "Japan", "Kenya", "Malaysia", "Mexico",
	"Morocco", "Netherlands", "New Zealand", "Nigeria", "Norway", "Pakistan", "Peru", "Philippines", "Poland",
	"Portugal", "Qatar", "Romania", "Saudi Arabia", "Singapore", "South Africa", "South Korea", "Spain",
	"Sri Lanka", "Sweden", "Switzerland", "Taiwan", "Thailand", "Turkey", "Ukraine", "United Arab Emirates",
	"United Kingdom", "United States", "Vietnam",
}

/*
Package probe classifies a website address with a single HTTP GET.

A probe normalizes the address, fetches it once with a browser-like User-Agent and a
fixed timeout, and reduces whatever happened (a response, a connection failure, a
timeout, any other transport error) to a typed Outcome. Classify then maps the
Outcome to exactly one Status label. Nothing in this package returns an error to the
caller: a probe always produces a label.
*/
package probe

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/x-stp/saleprobe/internal/client"
	"github.com/x-stp/saleprobe/internal/metrics"
)

const (
	// DefaultUserAgent is sent with every probe to get past trivial bot blocking.
	DefaultUserAgent = "Mozilla/5.0"
	// DefaultTimeout bounds a single probe, body read included.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a page is scanned for for-sale phrases.
	DefaultMaxBodyBytes = 5 << 20
)

// DefaultPhrases are the lowercase page phrases that mark a parked, for-sale domain.
var DefaultPhrases = []string{
	"domain for sale",
	"available for purchase",
	"domain available",
	"buy this domain",
}

// Config tunes a Prober. Zero fields fall back to the defaults above.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	Phrases      []string
	MaxBodyBytes int64
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		Phrases:      append([]string(nil), DefaultPhrases...),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Prober issues probes. It is safe for concurrent use.
type Prober struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	phrases   [][]byte // lowercased
	maxBody   int64
}

// New builds a Prober. A nil httpClient selects the shared client from
// internal/client; a nil config selects DefaultConfig.
func New(httpClient *http.Client, config *Config) *Prober {
	if httpClient == nil {
		httpClient = client.GetHTTPClient()
	}
	if config == nil {
		config = DefaultConfig()
	}
	p := &Prober{
		client:    httpClient,
		userAgent: config.UserAgent,
		timeout:   config.Timeout,
		maxBody:   config.MaxBodyBytes,
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.maxBody <= 0 {
		p.maxBody = DefaultMaxBodyBytes
	}
	phrases := config.Phrases
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	for _, ph := range phrases {
		ph = strings.TrimSpace(ph)
		if ph == "" {
			continue
		}
		p.phrases = append(p.phrases, []byte(strings.ToLower(ph)))
	}
	return p
}

// NormalizeAddress turns a stored web address into a request URL.
// It reports false for an empty or whitespace-only address. Surrounding
// whitespace is dropped and http:// is prepended when the address has no
// http:// or https:// scheme.
func NormalizeAddress(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", false
	}
	if hasPrefixFold(addr, "http://") || hasPrefixFold(addr, "https://") {
		return addr, true
	}
	return "http://" + addr, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Fetch performs at most one GET for addr and reports what happened.
// An invalid address returns OutcomeInvalid without touching the network.
func (p *Prober) Fetch(ctx context.Context, addr string) Outcome {
	target, ok := NormalizeAddress(addr)
	if !ok {
		return Outcome{Kind: OutcomeInvalid}
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Kind: OutcomeOtherError, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{Kind: requestErrorKind(err), URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		kind := bodyErrorKind(err)
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			kind = OutcomeTimeout
		}
		return Outcome{Kind: kind, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	return Outcome{
		Kind:       OutcomeResponse,
		URL:        target,
		StatusCode: resp.StatusCode,
		ForSale:    p.containsPhrase(body),
	}
}

// Check probes addr and returns its status label.
func (p *Prober) Check(ctx context.Context, addr string) Status {
	start := time.Now()
	outcome := p.Fetch(ctx, addr)
	status := Classify(outcome)
	metrics.ObserveProbe(outcome.Kind.String(), status.Class(), time.Since(start))
	return status
}

func (p *Prober) containsPhrase(body []byte) bool {
	if len(body) == 0 || len(p.phrases) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, ph := range p.phrases {
		if bytes.Contains(lower, ph) {
			return true
		}
	}
	return false
}

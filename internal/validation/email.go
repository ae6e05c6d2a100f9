package validation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/idna"
)

const (
	maxLocalLength   = 64
	maxAddressLength = 254
	maxDomainLength  = 253
	maxLabelLength   = 63
)

// ValidateEmail checks that raw is a single bare address and returns its canonical form:
// the whole address lower-cased with the domain in its ASCII (IDNA) form. The canonical
// form is the storage and comparison key.
//
// With checkDeliverability the domain must publish an MX record, or an address record
// when no MX exists. A null MX is rejected; temporary DNS failures are not.
func (v *Validator) ValidateEmail(ctx context.Context, raw string, checkDeliverability bool) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", reject("email", "email address is empty")
	}

	addr, err := mail.ParseAddress(candidate)
	if err != nil || addr.Name != "" || addr.Address != candidate {
		return "", reject("email", "email address is not valid")
	}

	at := strings.LastIndexByte(candidate, '@')
	local, domain := candidate[:at], candidate[at+1:]
	if strings.HasPrefix(local, `"`) {
		return "", reject("email", "quoted local parts are not accepted")
	}
	if len(local) > maxLocalLength {
		return "", reject("email", "the part before the @ is too long")
	}
	if strings.HasPrefix(domain, "[") {
		return "", reject("email", "domain literals are not accepted")
	}

	asciiDomain, err := normalizeDomain(domain)
	if err != nil {
		return "", err
	}

	normalized := strings.ToLower(local) + "@" + asciiDomain
	if len(normalized) > maxAddressLength {
		return "", reject("email", "email address is too long")
	}

	if checkDeliverability {
		if err := v.checkDeliverability(ctx, asciiDomain); err != nil {
			return "", err
		}
	}
	return normalized, nil
}

func normalizeDomain(domain string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", reject("email", "the domain name is not valid")
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) > maxDomainLength {
		return "", reject("email", "the domain name is too long")
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", reject("email", "the domain name must contain a dot")
	}
	for _, label := range labels {
		if label == "" || len(label) > maxLabelLength ||
			strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", reject("email", "the domain name is not valid")
		}
	}
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return "", reject("email", "the domain name is not valid")
	}
	return ascii, nil
}

func (v *Validator) checkDeliverability(ctx context.Context, domain string) error {
	undeliverable := reject("email", fmt.Sprintf("the domain name %s does not accept email", domain))

	mxs, err := v.dns().LookupMX(ctx, domain)
	if err == nil && len(mxs) > 0 {
		if len(mxs) == 1 && (mxs[0].Host == "." || mxs[0].Host == "") {
			return undeliverable
		}
		return nil
	}
	if isTransient(err) {
		log.Warn().Err(err).Str("domain", domain).Msg("MX lookup failed temporarily, accepting address")
		return nil
	}

	// No MX: an address record works as implicit MX.
	hosts, err := v.dns().LookupHost(ctx, domain)
	if err == nil && len(hosts) > 0 {
		return nil
	}
	if isTransient(err) {
		log.Warn().Err(err).Str("domain", domain).Msg("Host lookup failed temporarily, accepting address")
		return nil
	}
	return undeliverable
}

func isTransient(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && (dnsErr.IsTimeout || dnsErr.IsTemporary)
}

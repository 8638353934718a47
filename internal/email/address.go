package email

import (
	"regexp"
	"strings"
)

// Address shape accepted by the builder:
//
//	address      = display-name "<" addr-spec ">" / addr-spec
//	addr-spec    = local-part "@" domain
//	local-part   = atom *("." atom)
//	domain       = 1*(label ".") label
//
// Atoms and labels are lower case only. The character sets are part of the
// package contract; do not widen them without a caller-visible version bump.
var (
	displayNameRe = regexp.MustCompile(`^[\p{L}\p{N}_ ._]+$`)
	atomRe        = regexp.MustCompile("^[a-z0-9!#$%&'*+/=?^_`{|}~-]+$")
	labelRe       = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
)

// ValidateAddress reports whether addr is either a bare "user@domain" address
// or a "Display Name <user@domain>" address.
func ValidateAddress(addr string) bool {
	name, spec, bracketed := splitAddress(addr)
	if bracketed && !ValidDisplayName(name) {
		return false
	}
	return validAddrSpec(spec)
}

// EnvelopeAddress returns the bare user@domain part of addr for use in the
// SMTP envelope. It returns false if addr is not a valid address.
func EnvelopeAddress(addr string) (string, bool) {
	if !ValidateAddress(addr) {
		return "", false
	}
	_, spec, _ := splitAddress(addr)
	return spec, true
}

// ValidDisplayName reports whether name may precede a bracketed address.
func ValidDisplayName(name string) bool {
	return displayNameRe.MatchString(name)
}

// ValidLocalPart reports whether local is a dot-separated run of atoms.
func ValidLocalPart(local string) bool {
	if local == "" {
		return false
	}
	for _, atom := range strings.Split(local, ".") {
		if !atomRe.MatchString(atom) {
			return false
		}
	}
	return true
}

// ValidDomain reports whether domain has at least two labels.
func ValidDomain(domain string) bool {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !labelRe.MatchString(label) {
			return false
		}
	}
	return true
}

func validAddrSpec(spec string) bool {
	at := strings.LastIndexByte(spec, '@')
	if at < 0 {
		return false
	}
	return ValidLocalPart(spec[:at]) && ValidDomain(spec[at+1:])
}

// splitAddress separates an optional display name from the addr-spec. A
// trailing ">" means the bracketed form; everything before the last "<" is
// the display name.
func splitAddress(addr string) (name, spec string, bracketed bool) {
	if !strings.HasSuffix(addr, ">") {
		return "", addr, false
	}
	open := strings.LastIndexByte(addr, '<')
	if open < 0 {
		return "", addr, false
	}
	return addr[:open], addr[open+1 : len(addr)-1], true
}

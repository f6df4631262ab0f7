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
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

// connErrnos are socket errors that mean the site could not be reached at all.
var connErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.EPIPE,
}

// requestErrorKind classifies an error returned by http.Client.Do.
//
// Dial failures are connection errors even when the dial timed out: a host that
// never accepts the connection is unreachable, not slow. TLS verification
// failures are treated the same way.
func requestErrorKind(err error) OutcomeKind {
	if err == nil {
		return OutcomeOtherError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return OutcomeConnectionError
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return OutcomeConnectionError
	}
	if isTLSError(err) {
		return OutcomeConnectionError
	}
	for _, errno := range connErrnos {
		if errors.Is(err, errno) {
			return OutcomeConnectionError
		}
	}
	// Server hung up before sending a status line.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return OutcomeConnectionError
	}

	if isTimeout(err) {
		return OutcomeTimeout
	}
	return OutcomeOtherError
}

// bodyErrorKind classifies an error from reading a response body. The
// connection was already established, so only timeouts get their own kind.
func bodyErrorKind(err error) OutcomeKind {
	if isTimeout(err) {
		return OutcomeTimeout
	}
	return OutcomeOtherError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

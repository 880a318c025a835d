package imapmail

import (
	"net"
	"strconv"
)

// Config carries the IMAP endpoint and credentials. It is passed explicitly
// at construction; the package keeps no process-wide connection state.
type Config struct {
	// Host and Port locate the IMAP endpoint.
	Host string
	Port int
	// TLS selects an implicit-TLS connection. When false the connection is
	// plaintext, which is the mode local bridge daemons expose on loopback.
	TLS bool
	// Address is the account identity used for login.
	Address string
	// Password is the account (or bridge app) password.
	Password string
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

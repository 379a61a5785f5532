package pgwire

import (
	"crypto/tls"
	"time"
)

// TLSMode selects whether Connect requires a TLS upgrade before startup.
type TLSMode int

const (
	// TLSNone never attempts a TLS upgrade.
	TLSNone TLSMode = iota
	// TLSRequired sends SSLRequest and fails the connection if the server
	// does not accept it.
	TLSRequired
)

// Options configures Connect. It stands in for the "surrounding
// configuration collaborator" the core protocol driver is specified
// against; settings loading (files, env, flags) is out of scope here.
type Options struct {
	// Host is a TCP hostname, or the empty string / a path beginning with
	// "/" to select a UNIX-domain socket. Default is a UNIX socket at
	// /var/run/postgresql.
	Host string
	// Port defaults to 5432.
	Port uint16

	User     string
	Database string
	Password []byte

	TLSMode   TLSMode
	TLSConfig *tls.Config

	// DialTimeout defaults to 5 seconds.
	DialTimeout time.Duration
	// ReadTimeout and WriteTimeout, if positive, bound individual socket
	// reads and writes, from startup onward.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (opt *Options) withDefaults() *Options {
	o := *opt
	if o.Port == 0 {
		o.Port = 5432
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.TLSMode == TLSRequired && o.TLSConfig == nil {
		o.TLSConfig = &tls.Config{ServerName: o.Host}
	}
	return &o
}

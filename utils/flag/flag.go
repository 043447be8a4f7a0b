/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across binaries and service-agnostic.
	Each main function calls ParseFlags() once before reading them.
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
	Fetcher   = "fetcher"
)

var (
	ServiceName *string
)

func init() {
	ServiceName = flag.String("service", APIServer, "'api_server' or 'fetcher'")
}

func ParseFlags() {
	flag.Parse()
}

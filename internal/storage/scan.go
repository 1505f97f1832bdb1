package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected is returned when the virus scanner flags an attachment.
var ErrInfected = errors.New("malicious file detected")

// Scanner inspects an attachment before it is stored.
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner streams files to a clamd daemon.
type ClamdScanner struct {
	addr string
}

// NewClamdScanner returns a scanner for addr, e.g. "tcp://clamav:3310".
// An empty addr yields nil, meaning no scanning.
func NewClamdScanner(addr string) *ClamdScanner {
	if addr == "" {
		return nil
	}
	return &ClamdScanner{addr: addr}
}

func (s *ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(s.addr).ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for res := range results {
		switch res.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return fmt.Errorf("%w: %s", ErrInfected, res.Description)
		default:
			return fmt.Errorf("scan failed: %s", res.Description)
		}
	}
	return nil
}

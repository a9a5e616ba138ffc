package types

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ServerEncoding converts between the server encoding carried inside text
// datums and the UTF-16-bound strings the JVM wants (Go strings, UTF-8, on
// this side of the jvm package). UTF8 and SQL_ASCII pass through; the
// single-byte encodings go through x/text charmaps. Multi-byte server
// encodings other than UTF8 are out of scope.
type ServerEncoding struct {
	name string
	cm   encoding.Encoding // nil means passthrough
}

// NewServerEncoding resolves a PostgreSQL server_encoding name. The empty
// name means UTF8.
func NewServerEncoding(name string) (*ServerEncoding, error) {
	switch name {
	case "", "UTF8", "UTF-8", "SQL_ASCII":
		return &ServerEncoding{name: "UTF8"}, nil
	case "LATIN1", "ISO_8859_1":
		return &ServerEncoding{name: name, cm: charmap.ISO8859_1}, nil
	case "LATIN2":
		return &ServerEncoding{name: name, cm: charmap.ISO8859_2}, nil
	case "LATIN9":
		return &ServerEncoding{name: name, cm: charmap.ISO8859_15}, nil
	case "WIN1250":
		return &ServerEncoding{name: name, cm: charmap.Windows1250}, nil
	case "WIN1251":
		return &ServerEncoding{name: name, cm: charmap.Windows1251}, nil
	case "WIN1252":
		return &ServerEncoding{name: name, cm: charmap.Windows1252}, nil
	default:
		return nil, errors.Wrapf(ErrNotSupported, "server encoding %q", name)
	}
}

func (e *ServerEncoding) Name() string { return e.name }

// Decode turns server-encoded bytes into a string.
func (e *ServerEncoding) Decode(b []byte) (string, error) {
	if e.cm == nil {
		return string(b), nil
	}
	out, err := e.cm.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrapf(err, "decoding %s text", e.name)
	}
	return string(out), nil
}

// Encode turns a string into server-encoded bytes.
func (e *ServerEncoding) Encode(s string) ([]byte, error) {
	if e.cm == nil {
		return []byte(s), nil
	}
	out, err := e.cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s text", e.name)
	}
	return out, nil
}

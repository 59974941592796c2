// Package classifier maps event sourcetypes to payload extraction rules.
package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the closed set of sourcetypes the relay knows how to replay.
type Kind int

const (
	KindOther Kind = iota
	KindSNMP
	KindSyslog
)

func (k Kind) String() string {
	switch k {
	case KindSNMP:
		return "snmp"
	case KindSyslog:
		return "syslog"
	default:
		return "other"
	}
}

// ParseKind maps a sourcetype tag to its Kind. Matching is exact.
func ParseKind(tag string) Kind {
	switch tag {
	case "snmp":
		return KindSNMP
	case "syslog":
		return KindSyslog
	default:
		return KindOther
	}
}

const (
	SNMPTrapPort = 162
	SyslogPort   = 514
)

var (
	ErrUnknownSourcetype = errors.New("unknown sourcetype")
	ErrMalformedPayload  = errors.New("malformed payload")
)

// Extractor turns an event's raw field into the datagram payload.
type Extractor func(raw []byte) ([]byte, error)

// Rule is the extraction rule and default destination port of one Kind.
type Rule struct {
	Kind        Kind
	Extract     Extractor
	DefaultPort int
}

// Result is a classified event payload.
type Result struct {
	Kind        Kind
	Payload     []byte
	DefaultPort int
}

// Classifier holds the immutable rule table. It is safe for concurrent use.
type Classifier struct {
	rules map[Kind]Rule
}

// New returns a Classifier with the snmp and syslog rules.
func New() *Classifier {
	return &Classifier{
		rules: map[Kind]Rule{
			KindSNMP:   {Kind: KindSNMP, Extract: ExtractSNMP, DefaultPort: SNMPTrapPort},
			KindSyslog: {Kind: KindSyslog, Extract: ExtractSyslog, DefaultPort: SyslogPort},
		},
	}
}

// Classify applies the rule for sourcetype to raw. Unknown tags return
// ErrUnknownSourcetype; extraction failures wrap ErrMalformedPayload.
func (c *Classifier) Classify(sourcetype string, raw []byte) (Result, error) {
	kind := ParseKind(sourcetype)
	rule, ok := c.rules[kind]
	if !ok {
		return Result{Kind: kind}, fmt.Errorf("%w: %q", ErrUnknownSourcetype, sourcetype)
	}

	payload, err := rule.Extract(raw)
	if err != nil {
		return Result{Kind: kind}, err
	}
	return Result{Kind: kind, Payload: payload, DefaultPort: rule.DefaultPort}, nil
}

// ExtractSyslog uses the raw payload verbatim.
func ExtractSyslog(raw []byte) ([]byte, error) {
	return raw, nil
}

// ExtractSNMP decodes raw as a JSON object and returns its "data" member: a
// JSON string by value, any other JSON value as its JSON text.
func ExtractSNMP(raw []byte) ([]byte, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: snmp raw is not a JSON object: %v", ErrMalformedPayload, err)
	}
	if envelope == nil {
		return nil, fmt.Errorf("%w: snmp raw is null", ErrMalformedPayload)
	}

	data, ok := envelope["data"]
	data = bytes.TrimSpace(data)
	if !ok || len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: snmp raw has no data field", ErrMalformedPayload)
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: snmp data: %v", ErrMalformedPayload, err)
		}
		return []byte(s), nil
	}
	return []byte(data), nil
}

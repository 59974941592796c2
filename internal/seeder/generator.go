// Package seeder produces synthetic syslog and snmp events and posts them
// to a relay in batches.
package seeder

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Event is the relay input format.
type Event struct {
	Host            string `json:"host"`
	VIP             string `json:"vip"`
	SourceType      string `json:"sourcetype"`
	DestinationPort int    `json:"destinationPort,omitempty"`
	Raw             any    `json:"raw"`
}

var syslogApps = []string{"sshd", "sudo", "kernel", "cron", "systemd", "nginx", "postfix"}

var trapOIDs = []string{
	"1.3.6.1.6.3.1.1.5.1", // coldStart
	"1.3.6.1.6.3.1.1.5.2", // warmStart
	"1.3.6.1.6.3.1.1.5.3", // linkDown
	"1.3.6.1.6.3.1.1.5.4", // linkUp
	"1.3.6.1.6.3.1.1.5.5", // authenticationFailure
}

// Generator builds events for one destination VIP.
type Generator struct {
	faker *gofakeit.Faker
	vip   string
	now   func() time.Time
}

// NewGenerator returns a Generator. A zero seed draws a random one.
func NewGenerator(vip string, seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		vip:   vip,
		now:   time.Now,
	}
}

// PickType draws one of types from the generator's seeded source.
func (g *Generator) PickType(types []string) string {
	return g.faker.RandomString(types)
}

// Generate returns one event of the given sourcetype, or an error for a
// sourcetype the relay does not know.
func (g *Generator) Generate(sourcetype string) (Event, error) {
	switch sourcetype {
	case "syslog":
		return g.Syslog(), nil
	case "snmp":
		return g.SNMP(), nil
	default:
		return Event{}, fmt.Errorf("unsupported event type %q", sourcetype)
	}
}

// Syslog returns an RFC 3164 style line as the raw payload.
func (g *Generator) Syslog() Event {
	facility := g.faker.Number(0, 23)
	severity := g.faker.Number(0, 7)
	hostname := strings.ToLower(g.faker.Word()) + "-" + fmt.Sprint(g.faker.Number(1, 99))
	app := g.faker.RandomString(syslogApps)

	line := fmt.Sprintf("<%d>%s %s %s[%d]: %s",
		facility*8+severity,
		g.now().Format(time.Stamp),
		hostname,
		app,
		g.faker.Number(100, 65000),
		g.faker.HackerPhrase(),
	)

	return Event{
		Host:       g.faker.IPv4Address(),
		VIP:        g.vip,
		SourceType: "syslog",
		Raw:        line,
	}
}

// SNMP returns a trap summary wrapped in the {"data": ...} envelope.
func (g *Generator) SNMP() Event {
	data := fmt.Sprintf("community=%s oid=%s ifIndex=%d sysUpTime=%d agent=%s",
		g.faker.RandomString([]string{"public", "private", "monitor"}),
		g.faker.RandomString(trapOIDs),
		g.faker.Number(1, 48),
		g.faker.Number(1000, 99999999),
		g.faker.DomainName(),
	)

	return Event{
		Host:       g.faker.IPv4Address(),
		VIP:        g.vip,
		SourceType: "snmp",
		Raw:        map[string]string{"data": data},
	}
}

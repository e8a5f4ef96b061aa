package ical

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxLineOctets = 75

// Split75wrapper turns a line writer into one that folds lines longer than
// 75 octets: every continuation starts with a space. Lines passed to the
// returned writer must not contain the CRLF terminator, it is added here.
// Multi-byte characters are never split.
func Split75wrapper(writer func(string) (int, error)) func(string) (int, error) {
	return func(line string) (int, error) {
		written := 0
		limit := maxLineOctets
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			n, err := writer(line[:cut] + "\r\n ")
			written += n
			if err != nil {
				return written, err
			}
			line = line[cut:]
			// the leading space counts toward the next line
			limit = maxLineOctets - 1
		}
		n, err := writer(line + "\r\n")
		return written + n, err
	}
}

// TimeToIcalDatetime formats t as an iCalendar UTC date-time,
// YYYYMMDDTHHMMSSZ.
func TimeToIcalDatetime(t time.Time) (string, error) {
	if t.IsZero() {
		return "", fmt.Errorf("time is zero")
	}
	return t.UTC().Format("20060102T150405Z"), nil
}

// dateProperty renders a DTSTART/DTEND style property. Times at midnight
// UTC are written as all-day dates.
func dateProperty(name string, t time.Time) (string, error) {
	if t.IsZero() {
		return "", fmt.Errorf("%s: time is zero", name)
	}
	t = t.UTC()
	if hour, min, sec := t.Clock(); hour == 0 && min == 0 && sec == 0 {
		return name + ";VALUE=DATE:" + t.Format("20060102"), nil
	}
	value, err := TimeToIcalDatetime(t)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return name + ":" + value, nil
}

// NewCommonName renders the CN parameter and calendar address of an
// attendee: `CN=Ada:mailto:ada@x.com`. Names containing `:`, `;` or `,`
// are quoted. Double quotes and control characters are dropped.
func NewCommonName(name string, email string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("name and email must not be empty")
	}
	if strings.ContainsAny(email, ":;,\"\r\n\t ") {
		return "", fmt.Errorf("invalid email %q", email)
	}
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if strings.ContainsAny(name, ":;,") {
		name = `"` + name + `"`
	}
	return fmt.Sprintf("CN=%s:mailto:%s", name, email), nil
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// escapeText escapes a TEXT property value.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// Package proxylog parses the proxy's access-log lines back into
// structured records, matching the bit-exact schema the policy
// compiler writes via policy.AccessLogFormat (§6). It exists to let
// the orchestrator and its tests assert on what actually crossed the
// egress boundary, not just on what the ACL was supposed to allow.
package proxylog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entry is one parsed access-log line:
//
//	<ts> <client-ip> <host> <server-ip> <request-version> <method> <status> <result>:<hierarchy> <url> "<user-agent>"
//
// matching policy.AccessLogFormat field-for-field.
type Entry struct {
	Timestamp     time.Time
	ClientIP      string
	Host          string
	ServerIP      string
	RequestVersion string
	Method        string
	Status        int
	Result        string
	Hierarchy     string
	URL           string
	UserAgent     string
}

// Parse parses one access-log line rendered by policy.AccessLogFormat.
func Parse(line string) (Entry, error) {
	fields, err := splitLine(line)
	if err != nil {
		return Entry{}, err
	}
	if len(fields) != 10 {
		return Entry{}, fmt.Errorf("proxylog: expected 10 fields, got %d in line %q", len(fields), line)
	}

	tsSeconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("proxylog: invalid timestamp %q: %w", fields[0], err)
	}
	status, err := strconv.Atoi(fields[6])
	if err != nil {
		return Entry{}, fmt.Errorf("proxylog: invalid status %q: %w", fields[6], err)
	}
	result, hierarchy, ok := strings.Cut(fields[7], ":")
	if !ok {
		return Entry{}, fmt.Errorf("proxylog: malformed result:hierarchy field %q", fields[7])
	}

	return Entry{
		Timestamp:      time.Unix(int64(tsSeconds), 0).UTC(),
		ClientIP:       fields[1],
		Host:           fields[2],
		ServerIP:       fields[3],
		RequestVersion: fields[4],
		Method:         fields[5],
		Status:         status,
		Result:         result,
		Hierarchy:      hierarchy,
		URL:            fields[8],
		UserAgent:      fields[9],
	}, nil
}

// splitLine tokenizes on whitespace, treating a double-quoted final
// field (the user-agent) as a single token with its quotes stripped.
// A well-formed line yields 10 fields: nine before the quote plus the
// user-agent; Parse rejects any other count.
func splitLine(line string) ([]string, error) {
	line = strings.TrimRight(line, "\n")
	quoteIdx := strings.IndexByte(line, '"')
	if quoteIdx == -1 {
		return nil, fmt.Errorf("proxylog: missing quoted user-agent field in line %q", line)
	}
	head := strings.Fields(line[:quoteIdx])
	tail := strings.Trim(line[quoteIdx:], `"`)
	return append(head, tail), nil
}

// Denied reports whether the entry records a proxy denial, per the
// proxy's own result-code vocabulary (TCP_DENIED and its variants).
func (e Entry) Denied() bool {
	return strings.HasPrefix(e.Result, "TCP_DENIED")
}

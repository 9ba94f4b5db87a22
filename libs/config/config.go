package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidatePort checks an already-loaded port value; key is only used for the message.
func ValidatePort(key, v string) (string, error) {
	p, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return strconv.Itoa(p), nil
}

// List splits a comma separated value and drops blanks.
func List(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

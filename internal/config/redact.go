package config

import (
	"net/url"
	"strings"
)

// secretParams are query parameters that carry credentials, such as the
// libSQL auth token.
var secretParams = []string{"authToken", "password", "sslpassword"} //nolint:gochecknoglobals // fixed list

// RedactURL replaces the password in a connection URL, and any credential
// query parameter, with "***". If the URL cannot be parsed or carries no
// secret, it is returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	out := redactUserinfo(raw, u)

	if u.RawQuery == "" {
		return out
	}

	q := u.Query()
	changed := false

	for _, name := range secretParams {
		if q.Get(name) != "" {
			q.Set(name, "***")

			changed = true
		}
	}

	if !changed {
		return out
	}

	base, _, _ := strings.Cut(out, "?")

	return base + "?" + strings.ReplaceAll(q.Encode(), "%2A%2A%2A", "***")
}

// redactUserinfo masks the password between "user:" and "@" in the raw
// string so the rest of the URL keeps its original spelling.
func redactUserinfo(raw string, u *url.URL) string {
	if u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return raw
	}

	afterScheme := schemeEnd + len("://")

	atIdx := strings.Index(raw[afterScheme:], "@")
	if atIdx < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+atIdx]

	colonIdx := strings.Index(userinfo, ":")
	if colonIdx < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colonIdx+1] + "***" + raw[afterScheme+atIdx:]
}

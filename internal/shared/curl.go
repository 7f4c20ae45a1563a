// Utilities for lifting the auth service session cookie out of a browser "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"|--cookie\s+'([^']+)'|--cookie\s+"([^"]+)"`)
	tokenRegex  = regexp.MustCompile(`'([^']*)'|"([^"]*)"|(\S+)`)
)

// valueFlags are curl options whose next argument is a value rather than the request URL.
var valueFlags = map[string]bool{
	"-H": true, "--header": true,
	"-b": true, "--cookie": true,
	"-X": true, "--request": true,
	"-d": true, "--data": true, "--data-raw": true, "--data-binary": true, "--data-urlencode": true,
	"-A": true, "--user-agent": true,
	"-e": true, "--referer": true,
	"-u": true, "--user": true,
	"-o": true, "--output": true,
}

// CurlRequest represents the parts of a cURL command relevant to the auth status request.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts its request.
func ParseCurlFile(filepath string) (*CurlRequest, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts the URL, headers and cookie.
//
// A -b/--cookie flag takes precedence over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}
	req.URL = findURL(curlCmd)

	var headerCookie string
	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := cookieRegex.FindStringSubmatch(curlCmd); m != nil {
		req.Cookie = firstGroup(m)
	} else {
		req.Cookie = headerCookie
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return req, nil
}

// Credential returns the cookie to replay against the auth service.
//
// When expectedBase is set and the command targets another host, the cookie belongs elsewhere and is rejected.
func (c *CurlRequest) Credential(expectedBase string) (string, error) {
	if c.Cookie == "" {
		return "", fmt.Errorf("%w: curl command carries no cookie", ErrInvalidInput)
	}
	if expectedBase == "" {
		return c.Cookie, nil
	}
	if c.URL == "" {
		return "", fmt.Errorf("%w: curl command has no URL to check against %s", ErrInvalidInput, expectedBase)
	}

	want, err := url.Parse(expectedBase)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	got, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("%w: curl url: %v", ErrInvalidInput, err)
	}
	if !strings.EqualFold(want.Hostname(), got.Hostname()) {
		return "", fmt.Errorf("%w: curl command targets %s, expected %s", ErrInvalidInput, got.Hostname(), want.Hostname())
	}
	return c.Cookie, nil
}

// findURL returns the request URL: the --url value, or the first http(s) argument that is not
// the value of another option.
func findURL(curlCmd string) string {
	skip, urlNext := false, false
	for _, m := range tokenRegex.FindAllStringSubmatch(curlCmd, -1) {
		tok := firstGroup(m)
		switch {
		case urlNext:
			return tok
		case skip:
			skip = false
		case tok == "--url":
			urlNext = true
		case valueFlags[tok]:
			skip = true
		case strings.HasPrefix(tok, "http://"), strings.HasPrefix(tok, "https://"):
			return tok
		}
	}
	return ""
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

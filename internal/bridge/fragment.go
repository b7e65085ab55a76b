// internal/bridge/fragment.go
package bridge

import (
	"net/url"
	"strings"
)

// Call is a decoded fragment RPC: #keyword=arg1&arg2&...&argN.
type Call struct {
	Keyword string
	Args    []string
}

// FragmentOf returns the text after the first '#' in rawURL.
func FragmentOf(rawURL string) (string, bool) {
	_, fragment, ok := strings.Cut(rawURL, "#")
	return fragment, ok
}

// ParseCall decodes a fragment into a Call. The keyword ends at the first '='
// and the remainder is split on '&'. An empty remainder yields no arguments
// and trailing empty segments are dropped. Fragments without '=' or with an
// empty keyword are rejected.
//
// Neither delimiter is escaped, so argument values cannot contain '&' or '='.
func ParseCall(fragment string) (Call, bool) {
	keyword, blob, ok := strings.Cut(fragment, "=")
	if !ok || keyword == "" {
		return Call{}, false
	}

	call := Call{Keyword: keyword}
	if blob == "" {
		return call, true
	}

	args := strings.Split(blob, "&")
	for len(args) > 0 && args[len(args)-1] == "" {
		args = args[:len(args)-1]
	}
	call.Args = args
	return call, true
}

// EncodeCall builds the fragment a script would write to invoke keyword.
func EncodeCall(keyword string, args ...string) string {
	return keyword + "=" + strings.Join(args, "&")
}

// unescapeArgs percent-decodes each argument, keeping the original text for
// arguments that are not valid escapes.
func unescapeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if d, err := url.PathUnescape(a); err == nil {
			out[i] = d
		} else {
			out[i] = a
		}
	}
	return out
}

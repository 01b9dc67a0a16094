package fetcher

import (
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrBlocked is returned when a site answers with an anti-bot challenge.
var ErrBlocked = eris.New("blocked by anti-bot challenge")

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// smallPage is the size under which a captcha mention means the page is
// nothing but the challenge. Award pages often embed reCAPTCHA on forms.
const smallPage = 2000

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return BlockCloudflare
	}

	if len(body) < smallPage && strings.Contains(lower, "captcha") {
		return BlockCaptcha
	}

	return BlockNone
}

package media

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMacOSVersion is provisioned when a request does not pin a version.
const DefaultMacOSVersion = "sonoma"

// sucatalogURLs index Apple's software update catalogs per macOS version.
var sucatalogURLs = map[string]string{
	"sonoma":   "https://swscan.apple.com/content/catalogs/others/index-14-13-12-10.16-10.15-10.14-10.13-10.12-10.11-10.10-10.9-mountainlion-lion-snowleopard-leopard.merged-1.sucatalog",
	"ventura":  "https://swscan.apple.com/content/catalogs/others/index-13-12-10.16-10.15-10.14-10.13-10.12-10.11-10.10-10.9-mountainlion-lion-snowleopard-leopard.merged-1.sucatalog",
	"monterey": "https://swscan.apple.com/content/catalogs/others/index-12-10.16-10.15-10.14-10.13-10.12-10.11-10.10-10.9-mountainlion-lion-snowleopard-leopard.merged-1.sucatalog",
	"bigsur":   "https://swscan.apple.com/content/catalogs/others/index-11-10.16-10.15-10.14-10.13-10.12-10.11-10.10-10.9-mountainlion-lion-snowleopard-leopard.merged-1.sucatalog",
}

// knownRecoveryURLs are last-resort BaseSystem images per version, used when
// catalog scraping turns up nothing.
var knownRecoveryURLs = map[string]string{
	"sonoma":   "https://swcdn.apple.com/content/downloads/14/02/052-96247-A_4CQCB3FCLK/p4i6wh2rlkd1u4l44lpxi2q47xtm1cnl1z/BaseSystem.dmg",
	"ventura":  "https://swcdn.apple.com/content/downloads/38/14/032-84911-A_FXVVMK8FWD/qmm3j2l4gujfxj4mfz3l8szcqzqjgs9ij1/BaseSystem.dmg",
	"monterey": "https://swcdn.apple.com/content/downloads/05/50/071-08757-A_H75V45RM9P/pt3u2i4s7t0h2fmbs5s8d5qi5g8p7m0t1g/BaseSystem.dmg",
	"bigsur":   "https://swcdn.apple.com/content/downloads/50/46/071-00696-A_4R7GMX6DGX/7hqhu3p9xcnhj6c8b8l3w4rsc9f2n1l8mw/BaseSystem.dmg",
}

var (
	baseSystemPattern    = regexp.MustCompile(`https://[^<]+BaseSystem\.dmg`)
	installAssistPattern = regexp.MustCompile(`https://[^<]+InstallAssistant[^<]*\.pkg`)
	macCatalogUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// MacRecovery scrapes Apple's update catalog for a recovery image URL,
// preferring the small BaseSystem.dmg over full installer packages, and
// falls back to pinned URLs when the catalog yields nothing.
func (s *VendorURLSource) MacRecovery(ctx context.Context, version string) (string, error) {
	catalogURL, ok := sucatalogURLs[version]
	if !ok {
		return "", fmt.Errorf("unknown macos version: %q", version)
	}

	if url := s.scrapeCatalog(ctx, catalogURL); url != "" {
		return url, nil
	}
	if url, ok := knownRecoveryURLs[version]; ok {
		return url, nil
	}
	return "", fmt.Errorf("no recovery image found for macos %s", version)
}

func (s *VendorURLSource) scrapeCatalog(ctx context.Context, catalogURL string) string {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", macCatalogUserAgent).
		Get(catalogURL)
	if err != nil || resp.IsError() {
		return ""
	}
	body := resp.String()

	// SharedSupport images are full-install payloads, not recovery boots.
	for _, m := range baseSystemPattern.FindAllString(body, -1) {
		if !strings.Contains(m, "SharedSupport") {
			return m
		}
	}
	if m := installAssistPattern.FindString(body); m != "" {
		return m
	}
	return ""
}

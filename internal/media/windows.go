package media

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/buildforever/farmctl/internal/config"
)

// Microsoft's consumer download flow is session-based: a throwaway session
// ID must be whitelisted before the SKU and link endpoints answer. Same
// approach as the Fido/Rufus scripts.
const (
	downloadProfile = "606624d44113"
	downloadLocale  = "en-US"

	whitelistURL = "https://vlscppe.microsoft.com/tags"
	skuInfoURL   = "https://www.microsoft.com/software-download-connector/api/getskuinformationbyproductedition"
	skuLinksURL  = "https://www.microsoft.com/software-download-connector/api/GetProductDownloadLinksBySku"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
)

// productEditionIDs are Microsoft's edition identifiers for the download
// connector API.
var productEditionIDs = map[config.OS]string{
	config.OSWindows10:     "2618",
	config.OSWindows11:     "2935",
	config.OSWinServer2022: "2631",
	config.OSWinServer2025: "3113",
}

var evalCenterPages = map[config.OS]string{
	config.OSWinServer2022: "https://www.microsoft.com/en-us/evalcenter/download-windows-server-2022",
	config.OSWinServer2025: "https://www.microsoft.com/en-us/evalcenter/download-windows-server-2025",
}

var evalLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https://go\.microsoft\.com/fwlink/\?linkid=\d+`),
	regexp.MustCompile(`(?i)https://software-static\.download\.prss\.microsoft\.com/[^"']+\.iso`),
	regexp.MustCompile(`(?i)https://download\.microsoft\.com/[^"']+\.iso`),
}

// VendorURLSource resolves media URLs from Microsoft and Apple endpoints.
type VendorURLSource struct {
	http *resty.Client
}

// NewVendorURLSource creates a URLSource backed by the live vendor
// endpoints.
func NewVendorURLSource() *VendorURLSource {
	return &VendorURLSource{
		http: resty.New().SetHeader("User-Agent", browserUserAgent),
	}
}

type skuInfo struct {
	Skus []struct {
		ID       string `json:"Id"`
		Language string `json:"Language"`
	} `json:"Skus"`
}

type downloadLinks struct {
	ProductDownloadLinks []struct {
		URI string `json:"Uri"`
	} `json:"ProductDownloadLinks"`
}

// WindowsISO resolves a direct ISO URL via the download connector API, with
// the evaluation center as fallback for server editions.
func (s *VendorURLSource) WindowsISO(ctx context.Context, os config.OS) (string, error) {
	editionID, ok := productEditionIDs[os]
	if !ok {
		return "", fmt.Errorf("no product edition registered for %s", os)
	}

	url, err := s.connectorFlow(ctx, editionID)
	if err == nil {
		return url, nil
	}

	if evalURL, evalErr := s.evalCenterLink(ctx, os); evalErr == nil {
		return evalURL, nil
	}
	return "", err
}

func (s *VendorURLSource) connectorFlow(ctx context.Context, editionID string) (string, error) {
	sessionID := uuid.NewString()

	// Step 1: whitelist the session.
	_, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"org_id":     "y6jn8c31",
			"session_id": sessionID,
		}).
		Get(whitelistURL)
	if err != nil {
		return "", fmt.Errorf("session whitelisting failed: %w", err)
	}

	// Step 2: list SKUs (languages) for the edition.
	var skus skuInfo
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"profile":          downloadProfile,
			"productEditionId": editionID,
			"SKU":              "undefined",
			"friendlyFileName": "undefined",
			"Locale":           downloadLocale,
			"sessionID":        sessionID,
		}).
		SetHeader("Accept", "application/json").
		SetHeader("Referer", "https://www.microsoft.com/en-us/software-download/windows10ISO").
		SetResult(&skus).
		Get(skuInfoURL)
	if err != nil {
		return "", fmt.Errorf("sku request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sku request failed: %s", resp.Status())
	}

	skuID := pickSKU(skus)
	if skuID == "" {
		return "", fmt.Errorf("no sku found for edition %s", editionID)
	}

	// Step 3: resolve download links for the chosen SKU.
	var links downloadLinks
	resp, err = s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"profile":          downloadProfile,
			"productEditionId": "undefined",
			"SKU":              skuID,
			"friendlyFileName": "undefined",
			"Locale":           downloadLocale,
			"sessionID":        sessionID,
		}).
		SetHeader("Accept", "application/json").
		SetResult(&links).
		Get(skuLinksURL)
	if err != nil {
		return "", fmt.Errorf("download link request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download link request failed: %s", resp.Status())
	}

	return pickDownloadLink(links)
}

// pickSKU prefers US English, then any English, then the first offered.
func pickSKU(info skuInfo) string {
	for _, sku := range info.Skus {
		lang := strings.ToLower(sku.Language)
		if strings.Contains(lang, "english") && (strings.Contains(lang, "united states") || lang == "english") {
			return sku.ID
		}
	}
	for _, sku := range info.Skus {
		if strings.Contains(strings.ToLower(sku.Language), "english") {
			return sku.ID
		}
	}
	if len(info.Skus) > 0 {
		return info.Skus[0].ID
	}
	return ""
}

// pickDownloadLink prefers an x64 image over whatever is listed first.
func pickDownloadLink(links downloadLinks) (string, error) {
	for _, link := range links.ProductDownloadLinks {
		uri := strings.ToLower(link.URI)
		if strings.Contains(uri, "x64") || strings.Contains(uri, "amd64") {
			return link.URI, nil
		}
	}
	if len(links.ProductDownloadLinks) > 0 {
		return links.ProductDownloadLinks[0].URI, nil
	}
	return "", fmt.Errorf("no download link found")
}

// evalCenterLink scrapes the evaluation center page of server editions for
// a direct ISO link.
func (s *VendorURLSource) evalCenterLink(ctx context.Context, os config.OS) (string, error) {
	page, ok := evalCenterPages[os]
	if !ok {
		return "", fmt.Errorf("no evaluation page for %s", os)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(page)
	if err != nil {
		return "", fmt.Errorf("evaluation page fetch failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("evaluation page fetch failed: %s", resp.Status())
	}

	body := resp.String()
	for _, pattern := range evalLinkPatterns {
		matches := pattern.FindAllString(body, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			lower := strings.ToLower(m)
			if strings.Contains(lower, "x64") || strings.Contains(lower, "amd64") ||
				strings.Contains(strings.ToUpper(m), "SERVER") {
				return m, nil
			}
		}
		return matches[0], nil
	}
	return "", fmt.Errorf("no iso link on evaluation page")
}

var _ URLSource = (*VendorURLSource)(nil)

package downloads

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"fetcharr/internal/utils/logging"

	"github.com/browserutils/kooky"
	// Register all supported browser cookie stores.
	_ "github.com/browserutils/kooky/browser/all"
	"golang.org/x/net/publicsuffix"
)

const cookieDomain = "youtube.com"

// ExportBrowserCookies reads YouTube cookies from the named browser's
// store and writes them to destPath in Netscape format for yt-dlp's
// --cookies flag. An empty browser name reads every store found.
func ExportBrowserCookies(browser, destPath string) error {
	stores := kooky.FindAllCookieStores()

	var cookies []*http.Cookie
	for _, store := range stores {
		name := store.Browser()
		if browser != "" && !strings.EqualFold(name, browser) {
			continue
		}

		read, err := store.ReadCookies(kooky.Valid, kooky.DomainHasSuffix(cookieDomain))
		if err != nil {
			logging.D(2, "Failed to read cookies from %s: %v", name, err)
			continue
		}
		if len(read) > 0 {
			logging.I("Read %d cookies from %s", len(read), name)
		}
		for _, c := range read {
			cookies = append(cookies, &http.Cookie{
				Name:    c.Name,
				Value:   c.Value,
				Path:    c.Path,
				Domain:  c.Domain,
				Expires: c.Expires,
				Secure:  c.Secure,
			})
		}
	}

	if len(cookies) == 0 {
		return fmt.Errorf("no cookies found for %s", cookieDomain)
	}
	return writeNetscapeCookies(cookies, destPath)
}

// writeNetscapeCookies writes cookies in the Netscape file format.
func writeNetscapeCookies(cookies []*http.Cookie, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.E("failed to close cookie file %q: %v", path, err)
		}
	}()

	if _, err := file.WriteString("# Netscape HTTP Cookie File\n# This is a generated file! Do not edit.\n\n"); err != nil {
		return err
	}

	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = cookieDomain
		}
		if base, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimPrefix(domain, ".")); err == nil {
			domain = "." + base
		}

		includeSubdomains := "TRUE"
		cookiePath := c.Path
		if cookiePath == "" {
			cookiePath = "/"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		expiry := c.Expires
		if expiry.IsZero() {
			expiry = time.Now().Add(24 * time.Hour)
		}

		line := strings.Join([]string{
			domain,
			includeSubdomains,
			cookiePath,
			secure,
			strconv.FormatInt(expiry.Unix(), 10),
			c.Name,
			c.Value,
		}, "\t")
		if _, err := file.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	logging.S(1, "Wrote %d cookies to %s", len(cookies), path)
	return nil
}

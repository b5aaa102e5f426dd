package util

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	geoipDB        *geoip2.Reader
	geoipCache     *cache.Cache
	geoipCacheHits int64
	geoipCacheMiss int64
)

// IPLocation is the resolved city and country of a client address.
type IPLocation struct {
	City    string
	Country string
}

// String formats the location as "city/country", or whichever part is known.
func (l IPLocation) String() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + "/" + l.Country
	case l.Country != "":
		return l.Country
	default:
		return l.City
	}
}

// InitGeoIP initializes the local GeoIP2 database reader and an in-memory cache.
// If dbPath is empty, initialization is a no-op.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		return nil
	}

	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoipDB = r
	// Cache entries for 24h, purge every hour
	geoipCache = cache.New(24*time.Hour, 1*time.Hour)
	return nil
}

// CloseGeoIP closes the GeoIP DB if opened.
func CloseGeoIP() {
	if geoipDB != nil {
		_ = geoipDB.Close()
		geoipDB = nil
	}
}

// DownloadRequest names the MMDB source and where to store it.
type DownloadRequest struct {
	URL      string
	DestPath string
}

// DownloadGeoIPWithRequest downloads a GeoIP MMDB file and writes it atomically to req.DestPath.
// A URL ending in .gz is decompressed on the fly. The temporary file is removed on failure.
func DownloadGeoIPWithRequest(ctx context.Context, req DownloadRequest) (path string, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download, status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(req.DestPath), 0o755); err != nil {
		return "", err
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(req.DestPath), "geoip-*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	var body io.Reader = resp.Body
	if strings.HasSuffix(req.URL, ".gz") {
		gzReader, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return "", gzErr
		}
		defer gzReader.Close()
		body = gzReader
	}
	if _, err = io.Copy(tmpFile, body); err != nil {
		return "", err
	}
	if err = tmpFile.Sync(); err != nil {
		return "", err
	}
	if err = tmpFile.Close(); err != nil {
		return "", err
	}
	if err = os.Rename(tmpFile.Name(), req.DestPath); err != nil {
		return "", err
	}
	return req.DestPath, nil
}

// ValidateGeoIP attempts to open the MMDB file to ensure it's a valid DB.
func ValidateGeoIP(path string) error {
	r, err := geoip2.Open(path)
	if err != nil {
		return err
	}
	_ = r.Close()
	return nil
}

func isLocalAddress(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "192.168") ||
		strings.HasPrefix(ip, "::")
}

// GetIPLocation resolves ip with the local GeoIP database behind an in-memory cache.
// It returns an empty location when no lookup is possible.
func GetIPLocation(ip string) IPLocation {
	if ip == "" || isLocalAddress(ip) {
		return IPLocation{}
	}

	if geoipCache != nil {
		if v, ok := geoipCache.Get(ip); ok {
			atomic.AddInt64(&geoipCacheHits, 1)
			if loc, ok := v.(IPLocation); ok {
				return loc
			}
		}
	}
	atomic.AddInt64(&geoipCacheMiss, 1)

	if geoipDB == nil {
		return IPLocation{}
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return IPLocation{}
	}
	rec, err := geoipDB.City(parsed)
	if err != nil {
		eventLogger().Debug("GeoIP lookup failed", zap.String("ip", sanitizeLogValue(ip)), zap.Error(err))
		return IPLocation{}
	}

	loc := IPLocation{City: rec.City.Names["en"], Country: rec.Country.Names["en"]}
	if loc.Country == "" {
		loc.Country = rec.Country.IsoCode
	}
	if geoipCache != nil {
		geoipCache.Set(ip, loc, cache.DefaultExpiration)
	}
	return loc
}

// GetGeoIPCacheMetrics returns the cache hits and misses and current cache size.
func GetGeoIPCacheMetrics() (hits int64, misses int64, size int) {
	hits = atomic.LoadInt64(&geoipCacheHits)
	misses = atomic.LoadInt64(&geoipCacheMiss)
	if geoipCache != nil {
		return hits, misses, geoipCache.ItemCount()
	}
	return hits, misses, 0
}

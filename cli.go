package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/config"
	"github.com/ariebrainware/physio-pain-assessment/endpoint"
	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/ariebrainware/physio-pain-assessment/storage"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the built-in region and movement test catalogs",
}

var catalogRegionsCmd = &cobra.Command{
	Use:   "regions [region-id]",
	Short: "List regions, or show the muscles and nerves of one region",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogRegions,
}

var catalogTestsCmd = &cobra.Command{
	Use:   "tests [region-id...]",
	Short: "List movement tests, optionally only those targeting the given regions",
	RunE:  runCatalogTests,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect persisted assessment sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed sessions",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var geoipCmd = &cobra.Command{
	Use:   "geoip",
	Short: "Manage the GeoIP database used for event locations",
}

var (
	geoipURL  string
	geoipDest string
)

var geoipDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and validate a GeoLite2 MMDB file",
	RunE:  runGeoIPDownload,
}

var geoipLookupCmd = &cobra.Command{
	Use:   "lookup <ip>...",
	Short: "Resolve IP addresses with the configured GeoIP database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeoIPLookup,
}

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Manage AI endpoint rate limits",
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset <client-ip> [route]",
	Short: "Clear the rate limit counters of a client, on one AI route or all of them",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRateLimitReset,
}

func init() {
	catalogCmd.AddCommand(catalogRegionsCmd, catalogTestsCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd)

	geoipDownloadCmd.Flags().StringVar(&geoipURL, "url", "", "MMDB download URL (.mmdb or .mmdb.gz)")
	geoipDownloadCmd.Flags().StringVar(&geoipDest, "dest", "", "Destination path (defaults to GEOIP_DB_PATH)")
	_ = geoipDownloadCmd.MarkFlagRequired("url")
	geoipCmd.AddCommand(geoipDownloadCmd, geoipLookupCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
}

func runCatalogRegions(cmd *cobra.Command, args []string) error {
	regions := catalog.DefaultRegions()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		m, ok := regions.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown region %q", args[0])
		}
		fmt.Fprintf(out, "Region:    %s\n", args[0])
		fmt.Fprintf(out, "Primary:   %s\n", strings.Join(m.Primary, ", "))
		fmt.Fprintf(out, "Secondary: %s\n", strings.Join(m.Secondary, ", "))
		fmt.Fprintf(out, "Nerves:    %s\n", strings.Join(m.Nerves, ", "))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tPRIMARY MUSCLES")
	for _, id := range regions.IDs() {
		fmt.Fprintf(w, "%s\t%s\n", id, strings.Join(regions.PrimaryMuscles(id), ", "))
	}
	return w.Flush()
}

func runCatalogTests(cmd *cobra.Command, args []string) error {
	tests := catalog.DefaultMovementTests()
	list := tests.All()
	if len(args) > 0 {
		list = tests.TestsForRegions(args)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTARGET AREAS")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.TargetArea, ", "))
	}
	return w.Flush()
}

// openHistoryStore opens only the backend the history lives in.
func openHistoryStore(cfg *config.Config) (*storage.HistoryRepository, func(), error) {
	var (
		db  *gorm.DB
		rdb *redis.Client
		err error
	)
	switch cfg.StorageBackend {
	case config.StorageDatabase:
		if db, err = config.ConnectDatabase(); err != nil {
			return nil, nil, fmt.Errorf("connecting database: %w", err)
		}
	case config.StorageRedis:
		if rdb, err = config.ConnectRedis(); err != nil {
			return nil, nil, err
		}
	}

	kv, err := storage.Open(cfg, db, rdb)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		_ = kv.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return storage.NewHistoryRepository(kv), closeFn, nil
}

func loadHistory(cmd *cobra.Command) ([]model.AssessmentSession, error) {
	repo, closeFn, err := openHistoryStore(config.LoadConfig())
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return repo.LoadHistory(ctx)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	sessions, err := loadHistory(cmd)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions saved yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tMARKERS\tTESTS\tANALYSIS")
	for _, s := range sessions {
		analysed := "no"
		if s.GeminiAnalysis != nil {
			analysed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Status,
			len(s.PainMarkers), len(s.MovementTests), analysed)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	sessions, err := loadHistory(cmd)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.ID != args[0] {
			continue
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s (%s)\n", s.ID, s.Status)
		if s.InitialStory != "" {
			fmt.Fprintf(out, "Story: %s\n", s.InitialStory)
		}
		fmt.Fprintln(out, "\nPain markers:")
		for _, m := range s.PainMarkers {
			fmt.Fprintf(out, "  - %s (%s, %s) intensity %d/10\n", m.Region, m.BodyView, m.PainType, m.Intensity)
		}
		if len(s.MovementTests) > 0 {
			fmt.Fprintln(out, "\nMovement tests:")
			for _, t := range s.MovementTests {
				result := "negative"
				if t.IsPositive {
					result = "positive"
				}
				fmt.Fprintf(out, "  - %s: %s\n", t.TestName, result)
			}
		}
		if s.GeminiAnalysis != nil {
			fmt.Fprintln(out)
			fmt.Fprint(out, gateway.FormatAnalysis(s.GeminiAnalysis))
		}
		return nil
	}
	return fmt.Errorf("session %q not found", args[0])
}

func runGeoIPDownload(cmd *cobra.Command, args []string) error {
	dest := geoipDest
	if dest == "" {
		dest = config.LoadConfig().GeoIPDBPath
	}
	if dest == "" {
		return errors.New("no destination: pass --dest or set GEOIP_DB_PATH")
	}

	path, err := util.DownloadGeoIPWithRequest(cmd.Context(), util.DownloadRequest{URL: geoipURL, DestPath: dest})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if err := util.ValidateGeoIP(path); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("downloaded file is not a valid MMDB: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "GeoIP database written to %s\n", path)
	return nil
}

func runGeoIPLookup(cmd *cobra.Command, args []string) error {
	path := config.LoadConfig().GeoIPDBPath
	if path == "" {
		return errors.New("GEOIP_DB_PATH is not set")
	}
	if err := util.InitGeoIP(path); err != nil {
		return fmt.Errorf("opening GeoIP database: %w", err)
	}
	defer util.CloseGeoIP()

	out := cmd.OutOrStdout()
	for _, ip := range args {
		loc := util.GetIPLocation(ip).String()
		if loc == "" {
			loc = "unknown"
		}
		fmt.Fprintf(out, "%s\t%s\n", ip, loc)
	}
	hits, misses, size := util.GetGeoIPCacheMetrics()
	fmt.Fprintf(out, "cache: %d hits, %d misses, %d entries\n", hits, misses, size)
	return nil
}

func runRateLimitReset(cmd *cobra.Command, args []string) error {
	routes := endpoint.AIRoutes
	if len(args) == 2 {
		if !util.Contains(args[1], endpoint.AIRoutes) {
			return fmt.Errorf("%q is not a rate limited route (want one of %s)", args[1], strings.Join(endpoint.AIRoutes, ", "))
		}
		routes = []string{args[1]}
	}
	if _, err := config.ConnectRedis(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	for _, route := range routes {
		if err := middleware.ResetRateLimit(ctx, args[0], route); err != nil {
			return fmt.Errorf("resetting %s: %w", route, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d rate limit counter(s) for %s\n", len(routes), args[0])
	return nil
}

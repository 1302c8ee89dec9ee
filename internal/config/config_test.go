package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// isolate runs the test from an empty directory with no SCORING_ variables
// inherited from the caller's environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, envPrefix) || key == "DATABASE_URL" {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		dir := isolate(t)

		Convey("When only the database URL is set", func() {
			t.Setenv("SCORING_DATABASE_URL", "postgres://localhost/scoring")
			cfg, err := Load()

			Convey("Then defaults fill everything else", func() {
				So(err, ShouldBeNil)
				So(cfg.Port, ShouldEqual, "8080")
				So(cfg.Env, ShouldEqual, "development")
				So(cfg.BatchChunkSize, ShouldEqual, 50)
				So(cfg.BatchErrorLogLimit, ShouldEqual, 50)
				So(cfg.EnrichTimeout, ShouldEqual, 20*time.Second)
				So(cfg.StaleJobAfter, ShouldEqual, time.Hour)
				So(cfg.IsProduction(), ShouldBeFalse)
			})
		})

		Convey("When environment variables override defaults", func() {
			t.Setenv("SCORING_DATABASE_URL", "postgres://localhost/scoring")
			t.Setenv("SCORING_BATCH_CHUNK_SIZE", "25")
			t.Setenv("SCORING_ENRICH_TIMEOUT", "5s")
			t.Setenv("SCORING_ENRICH_RATE_PER_SECOND", "0.5")
			t.Setenv("SCORING_AUTO_MIGRATE", "true")
			t.Setenv("SCORING_ENV", "production")
			cfg, err := Load()

			Convey("Then the typed values are parsed", func() {
				So(err, ShouldBeNil)
				So(cfg.BatchChunkSize, ShouldEqual, 25)
				So(cfg.EnrichTimeout, ShouldEqual, 5*time.Second)
				So(cfg.EnrichRatePerSecond, ShouldEqual, 0.5)
				So(cfg.AutoMigrate, ShouldBeTrue)
				So(cfg.IsProduction(), ShouldBeTrue)
			})
		})

		Convey("When a YAML file is named", func() {
			path := filepath.Join(dir, "scoring.yaml")
			So(os.WriteFile(path, []byte(
				"database_url: postgres://file/scoring\nbatch_workers: 6\nreap_interval: 2m\nbatch_retry_backoff: 250ms\n",
			), 0o600), ShouldBeNil)
			t.Setenv(envFileVar, path)
			t.Setenv("SCORING_BATCH_WORKERS", "3")
			cfg, err := Load()

			Convey("Then file values apply and env still wins", func() {
				So(err, ShouldBeNil)
				So(cfg.DatabaseURL, ShouldEqual, "postgres://file/scoring")
				So(cfg.ReapInterval, ShouldEqual, 2*time.Minute)
				So(cfg.BatchRetryBackoff, ShouldEqual, 250*time.Millisecond)
				So(cfg.BatchWorkers, ShouldEqual, 3)
			})
		})

		Convey("When the named YAML file is missing", func() {
			t.Setenv(envFileVar, filepath.Join(dir, "absent.yaml"))
			_, err := Load()

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When settings are invalid", func() {
			t.Setenv("SCORING_BATCH_CHUNK_SIZE", "0")
			t.Setenv("SCORING_STALE_JOB_AFTER", "-1m")
			_, err := Load()

			Convey("Then every problem is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "database_url")
				So(err.Error(), ShouldContainSubstring, "batch_chunk_size")
				So(err.Error(), ShouldContainSubstring, "stale_job_after")
			})
		})

		Convey("When a .env file is present", func() {
			So(os.WriteFile(filepath.Join(dir, ".env"), []byte(
				"# local settings\nSCORING_DATABASE_URL=\"postgres://dotenv/scoring\"\nSCORING_PORT=9090\n",
			), 0o600), ShouldBeNil)
			t.Setenv("SCORING_PORT", "7070")
			t.Setenv("SCORING_DATABASE_URL", "")
			os.Unsetenv("SCORING_DATABASE_URL")
			cfg, err := Load()

			Convey("Then it fills unset variables only", func() {
				So(err, ShouldBeNil)
				So(cfg.DatabaseURL, ShouldEqual, "postgres://dotenv/scoring")
				So(cfg.Port, ShouldEqual, "7070")
			})
		})
	})
}

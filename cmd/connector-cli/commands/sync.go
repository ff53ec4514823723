package commands

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"poitiers-connector/lib/configutil"
	"poitiers-connector/lib/scrapers/poitiers"
	"poitiers-connector/lib/serviceutil"
	"poitiers-connector/lib/telemetry"
	"poitiers-connector/services/connector"
	"poitiers-connector/services/saver"
	saverdb "poitiers-connector/services/saver/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	BaseUrl  string `json:"baseurl"`
}

var syncOut *string
var syncDb *string

func init() {
	syncOut = syncCmd.Flags().String("out", "documents", "The directory to download documents into.")
	syncDb = syncCmd.Flags().String("db", "connector.db", "The ledger database tracking already saved files.")
	rootCmd.AddCommand(syncCmd)
}

// credentials come from config.json5, a .env file or the process
// environment, in increasing priority
func loadConfig() Config {
	_ = godotenv.Load()

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if v := os.Getenv("POITIERS_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("POITIERS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	return cfg
}

var syncCmd = &cobra.Command{
	Use:   "sync [--out <dir>] [--db <path/to/ledger.db>]",
	Short: "Logs into the portal and downloads every document not saved yet.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		tel, err := telemetry.SetupFromEnv(cmd.Context(), "connector-cli")
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		if err == nil {
			defer tel.Shutdown(context.Background())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute*10)
		defer cancel()

		client, err := poitiers.NewClient(ctx, poitiers.ClientOptions{BaseUrl: cfg.BaseUrl})
		if err != nil {
			serviceutil.Fatal("failed to initialize portal client", err)
		}

		ledger, err := sql.Open("sqlite", *syncDb)
		if err != nil {
			serviceutil.Fatal("failed to open ledger db", err)
		}
		defer ledger.Close()
		_, err = ledger.Exec(saverdb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to apply ledger schema", err)
		}

		err = os.MkdirAll(*syncOut, 0o755)
		if err != nil {
			serviceutil.Fatal("failed to create output directory", err)
		}
		fs := afero.NewBasePathFs(afero.NewOsFs(), *syncOut)

		slog.Info("syncing account", "username", cfg.Username)
		service := connector.NewService(client, saver.NewService(fs, ledger, client.Http))

		t1 := time.Now()
		files, err := service.Sync(ctx, connector.Credentials{
			Login:    cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			serviceutil.Fatal("sync failed", err)
		}
		slog.Info("sync time", "seconds", time.Since(t1).Seconds())

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Sub path", "Filename", "Url"})
		for _, f := range files {
			t.AppendRow(table.Row{f.SubPath, f.Filename, f.FileUrl})
		}
		t.Render()
	},
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/wxtd/internal/api"
	"github.com/lox/wxtd/internal/metrics"
	"github.com/lox/wxtd/internal/models"
	"github.com/lox/wxtd/internal/publish"
	"github.com/lox/wxtd/internal/store"
	"github.com/lox/wxtd/internal/transport"
	"github.com/lox/wxtd/internal/wxt"
)

var cli struct {
	Port         string        `help:"Serial port the transmitter is attached to." default:"/dev/ttyUSB0" env:"WXTD_PORT"`
	Baud         int           `help:"Serial baud rate." default:"19200" env:"WXTD_BAUD"`
	ReadTimeout  time.Duration `help:"Serial read timeout." default:"3s" env:"WXTD_READ_TIMEOUT"`
	Protocol     string        `help:"Wire protocol." enum:"ascii,legacy" default:"ascii" env:"WXTD_PROTOCOL"`
	PollInterval time.Duration `help:"Delay between successful polls." default:"1s" env:"WXTD_POLL_INTERVAL"`
	MaxTries     int           `help:"Consecutive failed attempts tolerated before giving up." default:"5" env:"WXTD_MAX_TRIES"`
	RetryWait    time.Duration `help:"Delay before retrying a failed attempt." default:"10s" env:"WXTD_RETRY_WAIT"`
	Debug        bool          `help:"Log raw frames as they are read." env:"WXTD_DEBUG"`

	DB        string        `help:"Path to the SQLite observation archive." default:"data/wxtd.db" env:"WXTD_DB"`
	Listen    string        `help:"HTTP listen address." default:":8080" env:"WXTD_LISTEN"`
	Retention time.Duration `help:"Drop observations older than this. Zero keeps everything." default:"0" env:"WXTD_RETENTION"`

	FTPAddr     string        `name:"ftp-addr" help:"FTP server (host:port) to publish snapshots to." env:"WXTD_FTP_ADDR"`
	FTPUser     string        `name:"ftp-user" env:"WXTD_FTP_USER"`
	FTPPassword string        `name:"ftp-password" env:"WXTD_FTP_PASSWORD"`
	FTPDir      string        `name:"ftp-dir" env:"WXTD_FTP_DIR"`
	FTPInterval time.Duration `name:"ftp-interval" default:"5m" env:"WXTD_FTP_INTERVAL"`

	Once bool `help:"Acquire a single record, print it as JSON, and exit."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("wxtd"),
		kong.Description("Polling acquisition daemon for Vaisala WXT-series weather transmitters."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	tr := &transport.Serial{
		PortName:    cli.Port,
		BaudRate:    cli.Baud,
		ReadTimeout: cli.ReadTimeout,
	}
	driver := wxt.NewDriver(tr, wxt.Config{
		Protocol:     wxt.Protocol(cli.Protocol),
		PollInterval: cli.PollInterval,
		MaxTries:     cli.MaxTries,
		RetryWait:    cli.RetryWait,
		Debug:        cli.Debug,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.Once {
		obs, err := driver.Next(ctx)
		if err != nil {
			log.Fatalf("acquire: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(api.NewObservationView(obs))
		return
	}

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	log.Printf("using serial port %s at %d baud (%s protocol)", cli.Port, cli.Baud, cli.Protocol)
	log.Printf("polling interval is %s", cli.PollInterval)

	records := make(chan *models.Observation)
	go func() {
		if err := driver.Stream(ctx, records); err != nil && ctx.Err() == nil {
			log.Printf("acquisition stopped: %v", err)
			cancel()
		}
	}()
	go storeRecords(ctx, st, records)

	if cli.Retention > 0 {
		go pruneLoop(ctx, st, cli.Retention)
	}

	if cli.FTPAddr != "" {
		pub := publish.NewPublisher(st, cli.FTPAddr, cli.FTPUser, cli.FTPPassword, cli.FTPDir)
		go pub.Run(ctx, cli.FTPInterval)
	}

	server := api.NewServer(st, cli.Listen)
	log.Printf("starting server on %s", cli.Listen)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func storeRecords(ctx context.Context, st *store.Store, records <-chan *models.Observation) {
	for {
		select {
		case <-ctx.Done():
			return
		case obs := <-records:
			if err := st.InsertObservation(*obs); err != nil {
				log.Printf("insert observation: %v", err)
				continue
			}
			metrics.ObservationsStored.Inc()
			if obs.OutTemp.Valid {
				log.Printf("observation: %.1f°C", obs.OutTemp.Float64)
			}
		}
	}
}

func pruneLoop(ctx context.Context, st *store.Store, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PruneBefore(time.Now().Add(-retention))
			if err != nil {
				log.Printf("prune: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("prune: removed %d observations", n)
			}
		}
	}
}

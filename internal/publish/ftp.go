package publish

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/wxtd/internal/metrics"
	"github.com/lox/wxtd/internal/store"
)

// Publisher uploads a current-conditions snapshot to an FTP server, the way
// station software traditionally pushes generated reports to a web host.
type Publisher struct {
	Addr     string // host:port
	User     string
	Password string
	Dir      string
	Filename string

	store *store.Store
}

func NewPublisher(st *store.Store, addr, user, password, dir string) *Publisher {
	return &Publisher{
		Addr:     addr,
		User:     user,
		Password: password,
		Dir:      dir,
		Filename: "current.json",
		store:    st,
	}
}

// Run uploads on the given interval until ctx is cancelled. Failures are
// logged and retried at the next tick; publishing is best-effort and never
// affects acquisition.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("publish: shutting down")
			return
		case <-ticker.C:
			if err := p.Publish(ctx); err != nil {
				metrics.SnapshotsPublished.WithLabelValues("error").Inc()
				log.Printf("publish: %v", err)
				continue
			}
			metrics.SnapshotsPublished.WithLabelValues("ok").Inc()
		}
	}
}

// Publish renders the latest observation and uploads it.
func (p *Publisher) Publish(ctx context.Context) error {
	obs, err := p.store.LatestObservation()
	if err != nil {
		return fmt.Errorf("load latest observation: %w", err)
	}
	if obs == nil {
		return nil
	}

	data, err := Snapshot(obs)
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}
	return p.upload(ctx, data)
}

func (p *Publisher) upload(ctx context.Context, data []byte) error {
	conn, err := ftp.Dial(p.Addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(p.User, p.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if p.Dir != "" {
		if err := conn.ChangeDir(p.Dir); err != nil {
			return fmt.Errorf("change dir %s: %w", p.Dir, err)
		}
	}
	if err := conn.Stor(p.Filename, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store %s: %w", p.Filename, err)
	}
	return nil
}

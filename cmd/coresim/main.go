// Command coresim drives the vault core end to end against in-memory
// collaborators: two accounts, a key-encapsulation handshake, a password
// rotation and a duress login. It exists to exercise the full stack locally;
// nothing it prints contains key material.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sealchat/go-core/internal/config"
	"sealchat/go-core/internal/platform/metrics"
	"sealchat/go-core/internal/platform/privacylog"
	"sealchat/go-core/internal/platform/ratelimiter"
	"sealchat/go-core/internal/session"
	"sealchat/go-core/internal/storage"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to core.yaml (optional)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()
	if *showVersion {
		fmt.Printf("coresim version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(privacylog.Wrap(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.LoadFromPath(*configPath)
	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("coresim failed: %v", err)
	}
	logger.Info("coresim finished")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	identities := storage.NewIdentityStore()
	vaults := storage.NewVaultStore()
	conversations := storage.NewConversationStore()
	credentials := storage.NewCredentialStore()
	presence := storage.NewPresenceRegistry()
	collector := metrics.NewCollector()

	persist := cfg.DataDir != "" && cfg.SnapshotPassphrase != ""
	if persist {
		if err := storage.LoadSnapshot(cfg.DataDir, cfg.SnapshotPassphrase, identities, vaults); err != nil {
			return fmt.Errorf("load state snapshot: %w", err)
		}
		defer func() {
			if err := storage.SaveSnapshot(cfg.DataDir, cfg.SnapshotPassphrase, identities, vaults); err != nil {
				logger.Warn("state snapshot not saved", "data_dir", cfg.DataDir)
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", "addr", cfg.MetricsAddr)
			}
		}()
	}

	newService := func() (*session.Service, error) {
		return session.New(session.Deps{
			Identities:    identities,
			Vaults:        vaults,
			Conversations: conversations,
			Credentials:   credentials,
			Presence:      presence,
			Logger:        logger,
			Metrics:       collector,
			LoginLimiter:  ratelimiter.NewLoginLimiter(cfg.LoginRPS, cfg.LoginBurst, cfg.LoginIdleTTL),
			KDFIterations: cfg.KDFIterations,
		})
	}

	alice, err := newService()
	if err != nil {
		return err
	}
	bob, err := newService()
	if err != nil {
		return err
	}

	// Fresh account names per run so a restored snapshot never collides with
	// this run's signups. Credentials are not part of the snapshot.
	aliceEmail := "alice@example.com"
	bobEmail := "bob@example.com"
	if persist {
		suffix := time.Now().Unix()
		aliceEmail = fmt.Sprintf("alice+%d@example.com", suffix)
		bobEmail = fmt.Sprintf("bob+%d@example.com", suffix)
	}

	aliceIdentity, _, err := alice.SignUp(ctx, aliceEmail, "correcthorse1")
	if err != nil {
		return fmt.Errorf("alice signup: %w", err)
	}
	if _, _, err := bob.SignUp(ctx, bobEmail, "hunter2hunter2"); err != nil {
		return fmt.Errorf("bob signup: %w", err)
	}

	if err := alice.Login(ctx, aliceEmail, "correcthorse1"); err != nil {
		return fmt.Errorf("alice login: %w", err)
	}
	if err := alice.SetDuressPassword(ctx, "letmeoutplease"); err != nil {
		return fmt.Errorf("set duress password: %w", err)
	}
	if err := bob.Login(ctx, bobEmail, "hunter2hunter2"); err != nil {
		return fmt.Errorf("bob login: %w", err)
	}

	const chatID = "chat-alice-bob"
	if err := bob.EncapAndSaveKey(ctx, chatID, aliceIdentity); err != nil {
		return fmt.Errorf("bob handshake: %w", err)
	}

	// Alice's subscription consumes the payload asynchronously.
	aliceKey, err := waitForChatKey(ctx, alice, chatID, 5*time.Second)
	if err != nil {
		return fmt.Errorf("alice never derived the chat key: %w", err)
	}
	bobKey, err := bob.GetChatKey(chatID)
	if err != nil {
		return fmt.Errorf("bob chat key: %w", err)
	}
	if !bytes.Equal(aliceKey, bobKey) {
		return errors.New("handshake produced mismatched chat keys")
	}
	logger.Info("handshake complete, chat keys agree", "chat_id", chatID)

	if err := bob.ChangePassword(ctx, "hunter2hunter2", "correctstaple2"); err != nil {
		return fmt.Errorf("bob password rotation: %w", err)
	}
	if err := bob.Logout(ctx); err != nil {
		return fmt.Errorf("bob logout: %w", err)
	}
	if err := bob.Login(ctx, bobEmail, "correctstaple2"); err != nil {
		return fmt.Errorf("bob relogin after rotation: %w", err)
	}
	logger.Info("password rotation verified")

	if err := alice.Logout(ctx); err != nil {
		return fmt.Errorf("alice logout: %w", err)
	}
	if err := alice.Login(ctx, aliceEmail, "letmeoutplease"); err != nil {
		return fmt.Errorf("duress login: %w", err)
	}
	if alice.State() != session.StateDecoyActive {
		return errors.New("duress login did not enter decoy mode")
	}
	if _, err := alice.GetChatKey(chatID); !errors.Is(err, session.ErrDecoyRestricted) {
		return errors.New("decoy session exposed a vault operation")
	}
	logger.Info("duress login verified", "conversations", len(alice.Conversations()))

	if err := alice.Logout(ctx); err != nil {
		return err
	}
	return bob.Logout(ctx)
}

func waitForChatKey(ctx context.Context, svc *session.Service, chatID string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		key, err := svc.GetChatKey(chatID)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, session.ErrNoChatKey) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return nil, context.DeadlineExceeded
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/regulumai/regulum/internal/app"
)

func main() {
	cmd := &cli.Command{
		Name:  "regulum",
		Usage: "Compliance analysis backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":4000",
				Sources: cli.EnvVars("REGULUM_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./regulum.sqlite",
				Sources: cli.EnvVars("REGULUM_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Sources: cli.EnvVars("REGULUM_JWT_SECRET"),
				Usage:   "HMAC secret for bearer tokens (required)",
			},
			&cli.StringFlag{
				Name:    "client-url",
				Sources: cli.EnvVars("REGULUM_CLIENT_URL"),
				Value:   "http://localhost:3000",
				Usage:   "Browser client origin allowed by CORS",
			},
			&cli.StringFlag{
				Name:    "anthropic-api-key",
				Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
				Usage:   "API key for the analysis model provider",
			},
			&cli.StringFlag{
				Name:    "anthropic-base-url",
				Sources: cli.EnvVars("REGULUM_ANTHROPIC_BASE_URL"),
				Usage:   "Override the model API base URL",
			},
			&cli.StringFlag{
				Name:    "anthropic-model",
				Sources: cli.EnvVars("REGULUM_ANTHROPIC_MODEL"),
				Usage:   "Model used for document analysis",
			},
			&cli.StringFlag{
				Name:    "bootstrap-org",
				Sources: cli.EnvVars("REGULUM_BOOTSTRAP_ORG"),
				Usage:   "Name of the default organization to ensure at startup",
			},
			&cli.StringFlag{
				Name:    "bootstrap-org-industry",
				Sources: cli.EnvVars("REGULUM_BOOTSTRAP_ORG_INDUSTRY"),
				Usage:   "Industry of the bootstrap organization",
			},
			&cli.StringFlag{
				Name:    "bootstrap-rules",
				Sources: cli.EnvVars("REGULUM_BOOTSTRAP_RULES"),
				Usage:   "JSON file with compliance rules to seed for the bootstrap organization",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:                 c.String("addr"),
				DBPath:               c.String("db-path"),
				JWTSecret:            c.String("jwt-secret"),
				ClientURL:            c.String("client-url"),
				AnthropicAPIKey:      c.String("anthropic-api-key"),
				AnthropicBaseURL:     c.String("anthropic-base-url"),
				AnthropicModel:       c.String("anthropic-model"),
				BootstrapOrgName:     c.String("bootstrap-org"),
				BootstrapOrgIndustry: c.String("bootstrap-org-industry"),
				BootstrapRulesPath:   c.String("bootstrap-rules"),
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

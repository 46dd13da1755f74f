package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/application/notify"
	"github.com/garyjia/expense-reimbursement/internal/config"
	"github.com/garyjia/expense-reimbursement/internal/container"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// Sends one sample notification over every configured channel.
// Use -retry to push the FAILED backlog once instead of waiting for the cron job.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	to := flag.String("to", "", "recipient email")
	kind := flag.String("kind", string(notify.KindSubmitted), "message kind to render")
	retry := flag.Bool("retry", false, "retry failed notifications and exit")
	flag.Parse()

	fmt.Println("=== Notification Test ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewDevelopmentLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		log.Fatalf("Failed to start container: %v", err)
	}
	defer c.Close()

	fmt.Printf("Channels: %v\n", cfg.Notification.Channels)

	if *retry {
		sent, err := c.Services().Notification.RetryFailed(ctx)
		if err != nil {
			log.Fatalf("Retry failed: %v", err)
		}
		fmt.Printf("Redelivered %d notification(s)\n", sent)
		return
	}

	if *to == "" {
		log.Fatal("-to is required")
	}
	if err := c.Services().Notification.SendTest(ctx, *to, notify.Kind(*kind)); err != nil {
		log.Fatalf("Failed to send: %v", err)
	}
	fmt.Printf("Sent %s to %s\n", *kind, *to)
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/modules/booking"
	"tickethub/internal/modules/inventory"
	"tickethub/internal/repository"
)

const sweepBatchSize = 200

// The sweeper expires PENDING bookings whose payment never arrived,
// releasing their inventory holds. It runs alongside the api binary.
func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	svc := booking.NewService(
		db,
		repository.NewBookingRepository(db),
		repository.NewEventRepository(db),
		repository.NewTicketClassRepository(db),
		repository.NewPaymentRepository(db),
		inventory.NewLedger(db),
		nil,
		nil,
		booking.DefaultPolicy(),
		cfg.Currency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("level=info msg=\"sweeper started\" interval=%s ttl=%s", cfg.SweepInterval, cfg.BookingTTL)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		n, err := svc.ExpireStale(ctx, cfg.BookingTTL, sweepBatchSize)
		if err != nil {
			log.Printf("level=error msg=\"sweep failed\" err=%v", err)
		} else if n > 0 {
			log.Printf("level=info msg=\"expired stale bookings\" count=%d", n)
		}

		select {
		case <-ctx.Done():
			log.Println("level=info msg=\"sweeper stopping\"")
			return
		case <-ticker.C:
		}
	}
}

package main

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/domain"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM tickets")
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM booking_lines")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM reservations")
	db.Exec("DELETE FROM ticket_classes")
	db.Exec("DELETE FROM events")
	db.Exec("DELETE FROM users")

	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:        "admin@tickethub.in",
		PasswordHash: string(adminHash),
		Role:         domain.RoleAdmin,
		FullName:     "Platform Admin",
	}
	db.Create(&admin)
	log.Println("Admin created: admin@tickethub.in / admin123")

	organizerHash, _ := bcrypt.GenerateFromPassword([]byte("organizer123"), bcrypt.DefaultCost)
	organizer := domain.User{
		Email:        "organizer@tickethub.in",
		PasswordHash: string(organizerHash),
		Role:         domain.RoleOrganizer,
		FullName:     "Priya Sharma",
		Phone:        "+91 98765 43210",
	}
	db.Create(&organizer)
	log.Println("Organizer created: organizer@tickethub.in / organizer123")

	attendeeEmails := []string{"arjun@gmail.com", "meera@gmail.com", "rahul@gmail.com"}
	names := []string{"Arjun Nair", "Meera Iyer", "Rahul Verma"}
	for i, email := range attendeeEmails {
		hash, _ := bcrypt.GenerateFromPassword([]byte("attendee123"), bcrypt.DefaultCost)
		db.Create(&domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleAttendee,
			FullName:     names[i],
		})
	}
	log.Println("Attendees created: arjun/meera/rahul@gmail.com / attendee123")

	log.Println("Creating event...")

	start := time.Now().Add(30 * 24 * time.Hour)
	end := start.Add(8 * time.Hour)
	regEnd := start.Add(-2 * time.Hour)
	event := domain.Event{
		Title:              "GopherCon India",
		Description:        "A full day of Go talks and workshops.",
		VenueName:          "NIMHANS Convention Centre",
		VenueAddress:       "Hosur Road",
		City:               "Bengaluru",
		Status:             domain.EventPublished,
		StartAt:            start,
		EndAt:              end,
		RegistrationEndAt:  &regEnd,
		MaxAttendees:       500,
		CancellationPolicy: "Full refund up to 7 days before the event.",
		OrganizerID:        organizer.ID,
	}
	db.Create(&event)

	earlyBirdEnd := time.Now().Add(7 * 24 * time.Hour)
	classes := []domain.TicketClass{
		{
			EventID:           event.ID,
			Name:              "General Admission",
			Price:             decimal.NewFromInt(1500),
			QuantityAvailable: 400,
			MaxPerBooking:     6,
			EarlyBirdPercent:  decimal.NewFromInt(20),
			EarlyBirdEndAt:    &earlyBirdEnd,
		},
		{
			EventID:           event.ID,
			Name:              "VIP",
			Description:       "Front rows plus speaker dinner.",
			Price:             decimal.NewFromInt(5000),
			QuantityAvailable: 50,
			MaxPerBooking:     2,
			IsTransferable:    false,
		},
		{
			EventID:           event.ID,
			Name:              "Student",
			Price:             decimal.NewFromInt(500),
			QuantityAvailable: 50,
			MinPerBooking:     1,
			MaxPerBooking:     1,
		},
	}
	for i := range classes {
		db.Create(&classes[i])
	}

	log.Printf("Seeded event %q with %d ticket classes", event.Title, len(classes))
	log.Println("Done.")
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"henna-rsvp/internal/config"
	"henna-rsvp/internal/handler"
	"henna-rsvp/internal/httpapi"
	"henna-rsvp/internal/invite"
	"henna-rsvp/internal/kv"
	"henna-rsvp/internal/models"
	"henna-rsvp/internal/spreadsheet"
	"henna-rsvp/internal/storage"
	"henna-rsvp/internal/whatsapp"

	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("🎉 Henna RSVP")
	fmt.Println("=============")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to open storage")
	}
	defer backend.Close()

	store := storage.New(backend, storage.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := httpapi.New(store, httpapi.Config{
		BaseURL:       cfg.PublicBaseURL,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	var (
		rsvpHandler *handler.RSVPHandler
		wa          *whatsapp.Service
	)
	if cfg.WhatsAppEnabled {
		wa, err = whatsapp.NewService(ctx, &whatsapp.Config{DataDir: cfg.DataDir}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize WhatsApp")
		}
		rsvpHandler = handler.NewRSVPHandler(wa, store, &handler.Config{
			BaseURL:      cfg.PublicBaseURL,
			MaxPartySize: httpapi.MaxPartySize,
		}, log)
		wa.SetMessageHandler(rsvpHandler.HandleMessage)

		fmt.Println("Connecting to WhatsApp...")
		if err := wa.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to WhatsApp")
		}
		fmt.Println("\n✅ Connected to WhatsApp! Listening for RSVP replies.")
	}

	console := &cli{
		ctx:     ctx,
		store:   store,
		rsvp:    rsvpHandler,
		baseURL: cfg.PublicBaseURL,
		scanner: bufio.NewScanner(os.Stdin),
		stop:    stop,
	}
	go console.run()

	<-ctx.Done()

	fmt.Println("\n\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if wa != nil {
		wa.Disconnect()
	}
	fmt.Println("Goodbye! 👋")
}

func openBackend(cfg *config.Config) (kv.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return kv.NewSQLite(cfg.StoragePath())
	case config.BackendMemory:
		return kv.NewMemory(), nil
	default:
		return kv.NewFile(cfg.StoragePath())
	}
}

type cli struct {
	ctx     context.Context
	store   *storage.Store
	rsvp    *handler.RSVPHandler
	baseURL string
	scanner *bufio.Scanner
	stop    context.CancelFunc
}

func (c *cli) run() {
	for {
		fmt.Println("\nCommands:")
		fmt.Println("  1. View all guests")
		fmt.Println("  2. View guests by status")
		fmt.Println("  3. Add guest")
		fmt.Println("  4. Delete guest")
		fmt.Println("  5. Send invitation")
		fmt.Println("  6. Import guests from xlsx")
		fmt.Println("  7. Export guests to xlsx")
		fmt.Println("  8. Stats")
		fmt.Println("  9. Show personal link")
		fmt.Println("  0. Exit")
		fmt.Print("\nEnter command (0-9): ")

		if !c.scanner.Scan() {
			return
		}

		switch strings.TrimSpace(c.scanner.Text()) {
		case "1":
			c.viewGuests(models.Filter{})
		case "2":
			c.viewGuestsByStatus()
		case "3":
			c.addGuest()
		case "4":
			c.deleteGuest()
		case "5":
			c.sendInvitation()
		case "6":
			c.importGuests()
		case "7":
			c.exportGuests()
		case "8":
			c.stats()
		case "9":
			c.showLink()
		case "0":
			fmt.Println("Exiting...")
			c.stop()
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func (c *cli) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

func (c *cli) viewGuests(filter models.Filter) {
	guests, err := c.store.FilterGuests(filter)
	if err != nil {
		fmt.Printf("❌ Error reading guests: %v\n", err)
		return
	}
	if len(guests) == 0 {
		fmt.Println("\nNo guests found.")
		return
	}

	fmt.Printf("\n📋 Guests (%d total):\n", len(guests))
	fmt.Println(strings.Repeat("-", 60))
	for _, g := range guests {
		fmt.Printf("ID: %s\n", g.ID)
		fmt.Printf("Name: %s\n", g.Name)
		fmt.Printf("Phone: %s\n", g.Phone)
		if g.Group != "" {
			fmt.Printf("Group: %s\n", g.Group)
		}
		fmt.Printf("Status: %s\n", g.Attending)
		if g.Attending == models.Attending {
			fmt.Printf("Guests: %d\n", g.NumberOfGuests)
		}
		fmt.Println(strings.Repeat("-", 60))
	}
}

func (c *cli) viewGuestsByStatus() {
	fmt.Println("\nSelect status:")
	fmt.Println("  1. Not answered")
	fmt.Println("  2. Attending")
	fmt.Println("  3. Not attending")
	choice, ok := c.prompt("Enter choice (1-3): ")
	if !ok {
		return
	}

	var status models.Attendance
	switch choice {
	case "1":
		status = models.NoResponse
	case "2":
		status = models.Attending
	case "3":
		status = models.NotAttending
	default:
		fmt.Println("Invalid choice.")
		return
	}
	c.viewGuests(models.Filter{Status: &status})
}

func (c *cli) addGuest() {
	name, ok := c.prompt("Enter guest name: ")
	if !ok || name == "" {
		return
	}
	phone, ok := c.prompt("Enter phone number: ")
	if !ok {
		return
	}
	group, ok := c.prompt("Enter group (optional): ")
	if !ok {
		return
	}

	g, err := c.store.AddGuest(models.Guest{Name: name, Phone: phone, Group: group})
	if err != nil {
		fmt.Printf("❌ Error adding guest: %v\n", err)
		return
	}
	fmt.Printf("✅ Added %s\n", g.Name)
	fmt.Printf("Personal link: %s\n", invite.PersonalLink(c.baseURL, g.ID))
}

func (c *cli) deleteGuest() {
	id, ok := c.prompt("Enter guest ID: ")
	if !ok {
		return
	}
	removed, err := c.store.DeleteGuest(id)
	if err != nil {
		fmt.Printf("❌ Error deleting guest: %v\n", err)
		return
	}
	if !removed {
		fmt.Println("No guest with that ID.")
		return
	}
	fmt.Println("✅ Guest deleted")
}

// sendInvitation sends through WhatsApp when connected, otherwise prints
// the click-to-chat link so the message can be sent by hand.
func (c *cli) sendInvitation() {
	id, ok := c.prompt("Enter guest ID: ")
	if !ok {
		return
	}

	if c.rsvp != nil {
		fmt.Println("Sending invitation...")
		if err := c.rsvp.SendInvitation(c.ctx, id); err != nil {
			fmt.Printf("❌ Error sending invitation: %v\n", err)
			return
		}
		fmt.Println("✅ Invitation sent successfully!")
		return
	}

	g, err := c.store.GetGuest(id)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	tmpl, err := c.store.Template()
	if err != nil {
		fmt.Printf("❌ Error reading template: %v\n", err)
		return
	}
	msg := invite.RenderMessage(tmpl, g, c.baseURL)
	fmt.Printf("\nOpen this link to send the invitation:\n%s\n", invite.BuildContactLink(g, msg))
}

func (c *cli) showLink() {
	id, ok := c.prompt("Enter guest ID: ")
	if !ok {
		return
	}
	g, err := c.store.GetGuest(id)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("%s: %s\n", g.Name, invite.PersonalLink(c.baseURL, g.ID))
}

func (c *cli) importGuests() {
	path, ok := c.prompt("Enter xlsx path: ")
	if !ok || path == "" {
		return
	}
	imported, err := spreadsheet.ImportFile(c.ctx, path)
	if err != nil {
		fmt.Printf("❌ Error reading spreadsheet: %v\n", err)
		return
	}
	merged, err := c.store.MergeImportedGuests(imported)
	if err != nil {
		fmt.Printf("❌ Error saving guests: %v\n", err)
		return
	}
	fmt.Printf("✅ Imported %d rows, %d guests in list\n", len(imported), len(merged))
}

func (c *cli) exportGuests() {
	path, ok := c.prompt("Enter output path [" + spreadsheet.ExportFileName + "]: ")
	if !ok {
		return
	}
	if path == "" {
		path = spreadsheet.ExportFileName
	}
	guests, err := c.store.ListGuests()
	if err != nil {
		fmt.Printf("❌ Error reading guests: %v\n", err)
		return
	}
	if err := spreadsheet.ExportFile(path, guests); err != nil {
		fmt.Printf("❌ Error writing spreadsheet: %v\n", err)
		return
	}
	fmt.Printf("✅ Exported %d guests to %s\n", len(guests), path)
}

func (c *cli) stats() {
	s, err := c.store.Stats()
	if err != nil {
		fmt.Printf("❌ Error reading guests: %v\n", err)
		return
	}
	fmt.Println("\n📊 Stats")
	fmt.Printf("Invited: %d\n", s.Total)
	fmt.Printf("Attending: %d (%d people)\n", s.Attending, s.TotalGuests)
	fmt.Printf("Not attending: %d\n", s.NotAttending)
	fmt.Printf("Not answered: %d\n", s.NotAnswered)
}

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/patient-portal/internal/availability"
	"github.com/clinicware/patient-portal/internal/booking"
	"github.com/clinicware/patient-portal/internal/clinicapi"
	"github.com/clinicware/patient-portal/internal/config"
	"github.com/clinicware/patient-portal/internal/observability/metrics"
	"github.com/clinicware/patient-portal/internal/portal"
	"github.com/clinicware/patient-portal/internal/session"
	"github.com/clinicware/patient-portal/internal/ui"
	"github.com/clinicware/patient-portal/pkg/logging"
)

const usage = `patient portal CLI

Usage:
  portal login <email> <password>
  portal logout
  portal doctors [clinic-type-slug]
  portal profile
  portal availability <clinic-type-slug> <doctor-id>
  portal book <clinic-type-slug> <doctor-id> <day-index> <slot-index> <note...>
  portal appointments
`

// app bundles the wired portal core for the CLI commands.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	session  *session.Store
	client   *clinicapi.Client
	coord    *portal.Coordinator
	loader   *availability.Loader
	workflow *booking.Workflow

	uninstallGuard func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	persist, err := tokenStore(cfg)
	if err != nil {
		return nil, err
	}
	sess := session.NewStore(persist, logger)

	m := metrics.NewPortalMetrics(prometheus.NewRegistry())
	notifier := ui.NewLogNotifier(logger)
	nav := ui.NewLogNavigator(logger)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	client := clinicapi.NewClient(cfg.BackendURL, sess, httpClient, logger)

	guard := clinicapi.NewAuthGuard(sess, notifier, nav, m, logger)
	uninstall := guard.Install(client.HTTPClient())

	coord := portal.NewCoordinator(client, sess, notifier, m, logger)
	loader := availability.NewLoader(client, notifier, m, logger)
	coord.OnRosterChange(loader.OnRosterChange)

	workflow := booking.NewWorkflow(client, sess, loader, coord, coord, notifier, nav, m, logger)
	// A slot only means something for the doctor it was picked from.
	loader.OnDoctorChange(func(string, int) { workflow.Reset() })

	a := &app{
		cfg:            cfg,
		logger:         logger,
		session:        sess,
		client:         client,
		coord:          coord,
		loader:         loader,
		workflow:       workflow,
		uninstallGuard: uninstall,
	}

	// Restore a persisted session; subscribers fetch roster and profile.
	if err := sess.Load(context.Background()); err != nil {
		logger.Warn("could not restore session", "error", err)
	}
	return a, nil
}

func tokenStore(cfg *config.Config) (session.TokenStore, error) {
	switch cfg.SessionBackend {
	case "file", "":
		return session.NewFileTokenStore(cfg.SessionFile), nil
	case "redis":
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return session.NewRedisTokenStore(redis.NewClient(opts), nil), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}
}

func (a *app) close() {
	a.coord.Close()
	a.loader.Wait()
	a.uninstallGuard()
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.session.Clear(ctx)
	case "doctors":
		return a.doctors(ctx, args)
	case "profile":
		return a.profile(ctx)
	case "availability":
		return a.availability(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "appointments":
		return a.appointments(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: portal login <email> <password>")
	}
	token, err := a.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.session.Set(ctx, token); err != nil {
		return err
	}
	a.coord.Wait()
	if p := a.coord.Profile(); p != nil {
		fmt.Printf("Logged in as %s (%s)\n", p.Name, p.Email)
	} else {
		fmt.Println("Logged in")
	}
	return nil
}

func (a *app) requireSession() error {
	if !a.session.Present() {
		return fmt.Errorf("not logged in; run: portal login <email> <password>")
	}
	return nil
}

func (a *app) doctors(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	slug := ""
	if len(args) > 0 {
		slug = args[0]
	}
	a.coord.Wait()
	docs := a.coord.DoctorsBySpecialty(slug)
	if len(docs) == 0 {
		fmt.Println("No doctors found")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%3d  %-20s %-20s %s\n", d.ID, d.Name, d.Speciality, d.ClinicTypeSlug)
	}
	return nil
}

func (a *app) profile(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	a.coord.Wait()
	p := a.coord.Profile()
	if p == nil {
		return fmt.Errorf("profile not loaded")
	}
	fmt.Printf("UID:    %d\nName:   %s\nEmail:  %s\nPhone:  %s\nGender: %s\nDOB:    %s\n",
		p.UID, p.Name, p.Email, p.Phone, p.Gender, p.DateOfBirth)
	return nil
}

func (a *app) availability(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: portal availability <clinic-type-slug> <doctor-id>")
	}
	docID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("doctor id must be a number: %w", err)
	}

	a.coord.Wait()
	a.loader.SetDoctor(args[0], docID)
	a.loader.Wait()

	av := a.loader.Current()
	if av == nil {
		return fmt.Errorf("no availability for doctor %d", docID)
	}
	fmt.Printf("%s — %s\n%s\n\n", av.Name, av.Speciality, av.About)
	for i, day := range av.Availability {
		fmt.Printf("[%d] %s\n", i, day.Date)
		for j, slot := range day.Slots {
			fmt.Printf("    [%d] %s (slot %d)\n", j, slot.Time, slot.ID)
		}
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 5 {
		return fmt.Errorf("usage: portal book <clinic-type-slug> <doctor-id> <day-index> <slot-index> <note...>")
	}
	docID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("doctor id must be a number: %w", err)
	}
	dayIndex, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("day index must be a number: %w", err)
	}
	slotIndex, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("slot index must be a number: %w", err)
	}
	note := strings.Join(args[4:], " ")

	a.coord.Wait()
	a.loader.SetDoctor(args[0], docID)
	a.loader.Wait()

	days := a.loader.Days()
	if dayIndex < 0 || dayIndex >= len(days) {
		return fmt.Errorf("day index %d out of range (%d days)", dayIndex, len(days))
	}
	if slotIndex < 0 || slotIndex >= len(days[dayIndex].Slots) {
		return fmt.Errorf("slot index %d out of range (%d slots)", slotIndex, len(days[dayIndex].Slots))
	}

	a.workflow.SelectDay(dayIndex)
	a.workflow.SelectSlot(days[dayIndex].Slots[slotIndex])
	a.workflow.SetNote(note)
	if err := a.workflow.Submit(ctx); err != nil {
		return err
	}
	fmt.Println("Appointment booked")
	return nil
}

func (a *app) appointments(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	appts, err := a.client.ListAppointments(ctx)
	if err != nil {
		return err
	}
	if len(appts) == 0 {
		fmt.Println("No appointments")
		return nil
	}
	for _, ap := range appts {
		fmt.Printf("%3d  %-20s %s %s  %s\n", ap.ID, ap.Doctor, ap.Date, ap.Time, ap.Status)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"servigo-client/api"
	"servigo-client/chat"
	"servigo-client/completion"
	"servigo-client/config"
	"servigo-client/models"
	"servigo-client/tracking"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using system environment")
	}
	config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app := &App{
		store: api.NewSessionStore(config.AppConfig.Session.FilePath),
	}
	if err := app.run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `servigo - service marketplace terminal client

Usage: servigo <command> [args]

  login <email> <password>         sign in and store the session
  logout                           clear the stored session
  whoami                           show the cached account

  bookings                         list your bookings
  booking <id>                     show one booking
  accept <id>                      accept a pending booking (servicer)
  cancel <id>                      cancel a pending/accepted booking

  start <id>                       start the job, prints the completion code (servicer)
  otp <id>                         show the current completion code (servicer)
  resend-otp <id>                  re-deliver the code to your notifications (servicer)
  verify <id> <code>               verify the code and complete the booking (user)
  request-otp <id>                 ask the servicer to share the code (user)

  start-tracking <id>              begin the tracking session (servicer, needs DEVICE_LAT/DEVICE_LNG)
  push-position <id>               push one position update (servicer)
  track <id>                       watch live tracking until it ends or Ctrl-C (user)

  issues                           list dispute threads
  raise-issue <booking-id> <subject> [description]
  chat <issue-id>                  follow a dispute thread until Ctrl-C
  send <issue-id> <text> [files...]  append a message, optionally with attachments

  notifications                    show your inbox
  read <id> | read-all | rm-notification <id>`)
}

// App ties the session store and config to one invocation.
type App struct {
	store *api.SessionStore
}

// client builds the role-parameterized API client from the stored session.
func (a *App) client() (*api.Client, *api.Session, error) {
	session, err := a.store.Load()
	if err != nil {
		return nil, nil, err
	}
	if session.Expired() {
		return nil, nil, errors.New("session expired, log in again")
	}
	cfg := config.AppConfig.API
	return api.NewClient(cfg.BaseURL, cfg.Timeout, session, session.Role()), session, nil
}

func (a *App) run(command string, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.store.Clear()
	case "whoami":
		return a.whoami()
	case "bookings":
		return a.bookings(ctx)
	case "booking":
		return a.booking(ctx, args)
	case "accept":
		return a.accept(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "start":
		return a.startService(ctx, args)
	case "otp":
		return a.viewOTP(ctx, args)
	case "resend-otp":
		return a.resendOTP(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "request-otp":
		return a.requestOTP(ctx, args)
	case "start-tracking":
		return a.startTracking(ctx, args)
	case "push-position":
		return a.pushPosition(ctx, args)
	case "track":
		return a.track(ctx, args)
	case "issues":
		return a.issues(ctx)
	case "raise-issue":
		return a.raiseIssue(ctx, args)
	case "chat":
		return a.followChat(ctx, args)
	case "send":
		return a.sendMessage(ctx, args)
	case "notifications":
		return a.notifications(ctx)
	case "read":
		return a.markRead(ctx, args)
	case "read-all":
		return a.markAllRead(ctx)
	case "rm-notification":
		return a.deleteNotification(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func argID(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, errors.New("missing id argument")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return uint(id), nil
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: login <email> <password>")
	}
	cfg := config.AppConfig.API
	// No token yet; the login endpoint ignores the header.
	client := api.NewClient(cfg.BaseURL, cfg.Timeout, api.StaticToken(""), models.RoleUser)
	session, err := client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.store.Save(session); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", session.Account.FullName, session.Role())
	return nil
}

func (a *App) whoami() error {
	session, err := a.store.Load()
	if err != nil {
		return err
	}
	account := session.Account
	if account == nil {
		fmt.Println("Session present, no cached account")
		return nil
	}
	fmt.Printf("%s <%s> role=%s", account.FullName, account.Email, account.Role)
	if !account.CanTransact() {
		fmt.Print("  [suspended or blocked]")
	}
	fmt.Println()
	return nil
}

func (a *App) bookings(ctx context.Context) error {
	client, _, err := a.client()
	if err != nil {
		return err
	}
	bookings, err := client.Bookings(ctx)
	if err != nil {
		return err
	}
	if len(bookings) == 0 {
		fmt.Println("No bookings")
		return nil
	}
	for _, b := range bookings {
		fmt.Printf("#%d  %-10s %-12s %-10s %.2f  %s\n",
			b.ID, b.BookingNumber, b.Status, b.ServiceType, b.Amount, b.Address)
	}
	return nil
}

func (a *App) booking(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	b, err := client.Booking(ctx, id)
	if err != nil {
		return err
	}
	printBooking(client.Role(), b)
	return nil
}

// printBooking shows the detail view with only the actions the current status
// allows. The server re-validates every transition regardless.
func printBooking(role models.Role, b *models.Booking) {
	fmt.Printf("Booking %s (#%d)\n", b.BookingNumber, b.ID)
	fmt.Printf("  status:   %s\n", b.Status)
	fmt.Printf("  service:  %s\n", b.ServiceType)
	fmt.Printf("  when:     %s %s\n", b.Date.Format("2006-01-02"), b.Time)
	fmt.Printf("  where:    %s\n", b.Address)
	fmt.Printf("  amount:   %.2f (%s, %s)\n", b.Amount, b.PaymentMethod, b.PaymentStatus)
	if b.Servicer != nil {
		fmt.Printf("  servicer: %s %s\n", b.Servicer.FullName, b.Servicer.PhoneNumber)
	}

	var actions []string
	switch role {
	case models.RoleServicer:
		if b.Status == models.BookingStatusPending {
			actions = append(actions, "accept")
		}
		if b.CanStart() {
			actions = append(actions, "start", "start-tracking")
		}
		if b.Status == models.BookingStatusInProgress {
			actions = append(actions, "otp", "resend-otp", "push-position")
		}
	case models.RoleUser:
		if b.Trackable() {
			actions = append(actions, "track")
		}
		if b.CanVerify() {
			actions = append(actions, "verify", "request-otp")
		}
	}
	if b.CanCancel() {
		actions = append(actions, "cancel")
	}
	if len(actions) > 0 {
		fmt.Printf("  actions:  %s\n", strings.Join(actions, ", "))
	}
}

func (a *App) accept(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	b, err := client.AcceptBooking(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("Booking is now", b.Status)
	return nil
}

func (a *App) cancel(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	b, err := client.CancelBooking(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("Booking is now", b.Status)
	return nil
}

func (a *App) startService(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	otp, err := client.StartService(ctx, id)
	if err != nil {
		return err
	}
	printOTP(otp)
	return nil
}

func printOTP(otp *models.CompletionOTP) {
	fmt.Printf("Completion code: %s\n", otp.Code)
	fmt.Printf("  valid until %s (%d digits)\n",
		otp.ExpiresAt.Format("2006-01-02 15:04"), otp.CodeLength())
	fmt.Println("  share it with the customer in person when the work is done")
}

func (a *App) viewOTP(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	otp, err := client.CompletionOTP(ctx, id)
	if err != nil {
		return err
	}
	printOTP(otp)
	return nil
}

func (a *App) resendOTP(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	if err := client.ResendOTP(ctx, id); err != nil {
		return err
	}
	fmt.Println("Completion code re-sent to your notifications")
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: verify <booking-id> <code>")
	}
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}

	gate := completion.NewGate(client)
	if b, err := client.Booking(ctx, id); err == nil {
		gate.AdoptPolicy(b.CompletionOTP)
	}
	gate.SetInput(args[1])
	if !gate.CanSubmit() {
		return fmt.Errorf("code must be exactly %d digits (got %q)", gate.CodeLength(), gate.Input())
	}
	if err := gate.Verify(ctx, id); err != nil {
		if gate.InlineError() != "" {
			return fmt.Errorf("verification rejected: %s", gate.InlineError())
		}
		return err
	}

	b, err := client.Booking(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("Booking is now", b.Status, "- payment released")
	return nil
}

func (a *App) requestOTP(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	gate := completion.NewGate(client)
	if err := gate.RequestFromServicer(ctx, id); err != nil {
		return err
	}
	fmt.Println("Servicer notified to share the completion code")
	return nil
}

// envGeolocator reads the device position from DEVICE_LAT/DEVICE_LNG. A
// terminal has no GPS; unset variables behave like a denied permission.
type envGeolocator struct{}

func (envGeolocator) CurrentPosition(ctx context.Context) (float64, float64, error) {
	latRaw, lngRaw := os.Getenv("DEVICE_LAT"), os.Getenv("DEVICE_LNG")
	if latRaw == "" || lngRaw == "" {
		return 0, 0, errors.New("DEVICE_LAT/DEVICE_LNG not set")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func (a *App) startTracking(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	reporter := tracking.NewReporter(client, envGeolocator{})
	if err := reporter.Start(ctx, id); err != nil {
		return err
	}
	fmt.Println("Tracking started")
	return nil
}

func (a *App) pushPosition(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	reporter := tracking.NewReporter(client, envGeolocator{})
	if err := reporter.Update(ctx, id); err != nil {
		return err
	}
	fmt.Println("Position updated")
	return nil
}

func (a *App) track(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}

	cfg := config.AppConfig
	viewer := tracking.NewViewer(client, &tracking.TerminalMap{}, tracking.ViewerConfig{
		Interval:        cfg.Polling.TrackingInterval,
		JitterFraction:  cfg.Polling.JitterFraction,
		HistoryLimit:    cfg.Tracking.HistoryLimit,
		AverageSpeedKmh: cfg.Tracking.AverageSpeedKmh,
	})
	viewer.OnUpdate = func(u tracking.Update) {
		switch u.State {
		case tracking.StateActive:
			last := "-"
			if u.Snapshot.LastUpdate != nil {
				last = u.Snapshot.LastUpdate.Format("15:04:05")
			}
			arrived := ""
			if u.Snapshot.ServicerArrived {
				arrived = "  · servicer arrived"
			}
			fmt.Printf("%.2f km away · ETA %d min · updated %s%s\n",
				u.DistanceKm, u.ETAMinutes, last, arrived)
		case tracking.StateInactive:
			fmt.Println("Tracking has not started for this booking")
		case tracking.StateError:
			fmt.Println("Tracking update failed:", u.Err)
		}
	}

	err = viewer.Run(ctx, id)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) issues(ctx context.Context) error {
	client, _, err := a.client()
	if err != nil {
		return err
	}
	issues, err := client.Issues(ctx)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("No dispute threads")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("#%d  booking %d  %-15s %s\n", issue.ID, issue.BookingID, issue.Status, issue.Subject)
	}
	return nil
}

func (a *App) raiseIssue(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: raise-issue <booking-id> <subject> [description]")
	}
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	description := ""
	if len(args) > 2 {
		description = strings.Join(args[2:], " ")
	}
	issue, err := client.RaiseIssue(ctx, id, args[1], description)
	if err != nil {
		return err
	}
	fmt.Printf("Issue #%d opened (%s)\n", issue.ID, issue.Status)
	return nil
}

func (a *App) followChat(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}

	seen := 0
	thread := chat.NewThread(client, id, chat.Config{
		Interval:       config.AppConfig.Polling.ChatInterval,
		JitterFraction: config.AppConfig.Polling.JitterFraction,
	})
	thread.OnMessages = func(messages []models.IssueMessage) {
		for _, m := range messages[min(seen, len(messages)):] {
			printMessage(&m)
		}
		seen = len(messages)
	}
	thread.OnError = func(err error) {
		log.Printf("⚠️ chat poll failed: %v", err)
	}

	err = thread.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printMessage(m *models.IssueMessage) {
	fmt.Printf("[%s] %s (%s): %s\n",
		m.CreatedAt.Format("15:04"), m.SenderName, m.SenderRole, m.Text)
	for _, att := range m.Attachments {
		fmt.Printf("        📎 %s (%d bytes)\n", att.FileName, att.SizeBytes)
	}
}

func (a *App) sendMessage(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: send <issue-id> <text> [files...]")
	}
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}

	var attachments []api.Upload
	var open []*os.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()
	for _, path := range args[2:] {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", path, err)
		}
		open = append(open, f)
		attachments = append(attachments, api.Upload{
			FieldName: "attachments",
			FileName:  filepath.Base(path),
			Content:   f,
		})
	}

	thread := chat.NewThread(client, id, chat.Config{})
	msg, err := thread.Send(ctx, args[1], attachments)
	if err != nil {
		return err
	}
	fmt.Printf("Sent message #%d\n", msg.ID)
	return nil
}

func (a *App) notifications(ctx context.Context) error {
	client, _, err := a.client()
	if err != nil {
		return err
	}
	notifications, err := client.Notifications(ctx)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		fmt.Println("Inbox empty")
		return nil
	}
	for _, n := range notifications {
		read := " "
		if !n.Read {
			read = "*"
		}
		fmt.Printf("%s #%d [%s] %s: %s\n", read, n.ID, n.Type, n.Title, n.Message)
	}
	return nil
}

func (a *App) markRead(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	return client.MarkNotificationRead(ctx, id)
}

func (a *App) markAllRead(ctx context.Context) error {
	client, _, err := a.client()
	if err != nil {
		return err
	}
	return client.MarkAllNotificationsRead(ctx)
}

func (a *App) deleteNotification(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	client, _, err := a.client()
	if err != nil {
		return err
	}
	return client.DeleteNotification(ctx, id)
}
